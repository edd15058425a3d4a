package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stats is the dashboard aggregate returned by the admin stats endpoint
type Stats struct {
	BlogCount     int          `json:"blogCount"`
	CommentsCount int          `json:"commentsCount"`
	ViewsChart    []ChartPoint `json:"viewsChart"`
	RecentPosts   []BlogPost   `json:"recentPosts"`
	Activity      []Activity   `json:"activity"`
}

// Activity is one entry of the dashboard activity feed
type Activity struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChartPoint is a views count. The API sends either a bare number or {"value": n}.
type ChartPoint int

// UnmarshalJSON accepts both encodings of a chart point
func (c *ChartPoint) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = ChartPoint(n)
		return nil
	}
	var obj struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid chart point %s: %w", string(data), err)
	}
	*c = ChartPoint(obj.Value)
	return nil
}

// TotalViews sums the views chart
func (s Stats) TotalViews() int {
	total := 0
	for _, v := range s.ViewsChart {
		total += int(v)
	}
	return total
}

// LastDays returns the labels for the last n days ending today, oldest first
func LastDays(now time.Time, n int) []string {
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		labels[i] = now.AddDate(0, 0, -(n - 1 - i)).Format("Mon")
	}
	return labels
}
