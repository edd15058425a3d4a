package guard

import "strings"

// LoginPath is where anonymous visitors of protected routes are sent
const LoginPath = "/admin"

// Route is one entry of the route table
type Route struct {
	Pattern   string
	Name      string
	Protected bool
}

// NotFound is the route unknown paths resolve to
var NotFound = Route{Pattern: "*", Name: "not-found"}

// Routes is the site's route table. Patterns use ":name" segments for parameters.
var Routes = []Route{
	{Pattern: "/", Name: "home"},
	{Pattern: "/contact-page", Name: "contact"},
	{Pattern: "/about-page", Name: "about"},
	{Pattern: "/learn-more", Name: "learn-more"},
	{Pattern: "/blog", Name: "blog"},
	{Pattern: "/blog/:id", Name: "blog-post"},
	{Pattern: "/projects/project-details/:id", Name: "project-details"},
	{Pattern: "/projects/project-page", Name: "projects"},
	{Pattern: "/services/ui-ux-design", Name: "service-ui-ux"},
	{Pattern: "/services/no-code-app-web-development", Name: "service-no-code"},
	{Pattern: "/services/ecommerce-strategy", Name: "service-ecommerce"},
	{Pattern: "/services/social-media-campaigns", Name: "service-smo"},
	{Pattern: "/services/content-management", Name: "service-cms"},
	{Pattern: "/services/full-stack-development", Name: "service-full-stack"},
	{Pattern: "/services/computer-application-development", Name: "service-computer-app"},
	{Pattern: "/terms-of-use", Name: "terms"},
	{Pattern: "/privacy", Name: "privacy"},
	{Pattern: "/policy", Name: "policy"},
	{Pattern: "/copyright", Name: "copyright"},

	{Pattern: LoginPath, Name: "admin-login"},
	{Pattern: "/admin/dashboard", Name: "admin-dashboard", Protected: true},
	{Pattern: "/admin/users-management", Name: "admin-users", Protected: true},
	{Pattern: "/admin/blog-post", Name: "admin-blog", Protected: true},
}

// match returns the parameters of path under pattern, or ok=false
func match(pattern, path string) (map[string]string, bool) {
	pp := split(pattern)
	sp := split(path)
	if len(pp) != len(sp) {
		return nil, false
	}

	var params map[string]string
	for i, seg := range pp {
		if strings.HasPrefix(seg, ":") {
			if sp[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[seg[1:]] = sp[i]
			continue
		}
		if seg != sp[i] {
			return nil, false
		}
	}
	return params, true
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
