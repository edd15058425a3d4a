// Package workflow drives the admin blog section: the post list with search, and
// a single create/edit form that moves Browsing -> Composing -> Submitting.
//
// Every successful write is followed by a full list reload rather than a local
// patch, so the list always mirrors the server.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/existflow/blogdesk/internal/api"
	"github.com/existflow/blogdesk/internal/logger"
	"github.com/existflow/blogdesk/internal/model"
	"github.com/existflow/blogdesk/internal/notify"
)

// State is the workflow state
type State int

const (
	Browsing State = iota
	Composing
	Submitting
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case Composing:
		return "composing"
	case Submitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// Mode tells a create form from an edit form
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

var (
	// ErrBusy is returned when an action arrives while a submission or delete is in flight
	ErrBusy = errors.New("a submission is in progress")
	// ErrNotComposing is returned by form actions outside of Composing
	ErrNotComposing = errors.New("no form is open")
	// ErrFormOpen is returned when opening a form while another one is open
	ErrFormOpen = errors.New("a form is already open")
	// ErrClosed is returned once the workflow's view has gone away
	ErrClosed = errors.New("workflow closed")
	// ErrStale is returned when a load finished after a newer one started; its result was dropped
	ErrStale = errors.New("stale result discarded")
)

// Repository is the part of the content repository the workflow uses
type Repository interface {
	List(ctx context.Context) ([]model.BlogPost, error)
	Create(ctx context.Context, title, content string, image *model.ImageUpload) (*model.BlogPost, error)
	Update(ctx context.Context, id, title, content string, image *model.ImageUpload) (*model.BlogPost, error)
	Delete(ctx context.Context, id string) error
}

// Form is the create/edit form state
type Form struct {
	Mode    Mode
	PostID  string
	Title   string
	Content string
	Image   *model.ImageUpload
}

// Workflow is the admin content workflow. It is safe for concurrent use; remote
// calls run without holding the lock.
type Workflow struct {
	repo   Repository
	notify notify.Notifier
	log    *logger.Logger

	mu      sync.Mutex
	state   State
	form    Form
	list    model.PostListView
	loadSeq  uint64
	closed   bool
	deleting bool
	lastErr  error
}

// Option configures a Workflow
type Option func(*Workflow)

// WithNotifier sets where notices go
func WithNotifier(n notify.Notifier) Option {
	return func(w *Workflow) { w.notify = n }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(w *Workflow) { w.log = l }
}

// New creates a Workflow in Browsing with an empty list
func New(repo Repository, opts ...Option) *Workflow {
	w := &Workflow{
		repo:   repo,
		notify: notify.Nop{},
		log:    logger.Named("workflow"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current state
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Form returns a copy of the open form
func (w *Workflow) Form() Form {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form
}

// View returns a copy of the list state
func (w *Workflow) View() model.PostListView {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := w.list
	v.Items = append([]model.BlogPost(nil), w.list.Items...)
	return v
}

// Visible returns the loaded posts matching the search term
func (w *Workflow) Visible() []model.BlogPost {
	return w.View().Visible()
}

// LastError returns the error of the most recent failed action, nil after a success
func (w *Workflow) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// SetSearch sets the search term. Filtering never touches the network.
func (w *Workflow) SetSearch(term string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.list.SearchTerm = term
}

// Load replaces the list with the server's. Results of a load overtaken by a
// newer one, or arriving after Close, are dropped.
func (w *Workflow) Load(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.loadSeq++
	seq := w.loadSeq
	w.list.IsLoading = true
	w.mu.Unlock()

	posts, err := w.repo.List(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.log.Debug("Dropping list result after close")
		return ErrClosed
	}
	if seq != w.loadSeq {
		w.log.Debug("Dropping stale list result", logger.F("seq", seq), logger.F("latest", w.loadSeq))
		return ErrStale
	}
	w.list.IsLoading = false

	if err != nil {
		w.lastErr = err
		w.log.Warn("Failed to load posts", logger.Err(err))
		w.notify.Error("Failed to load posts")
		return err
	}

	w.list.Items = posts
	w.lastErr = nil
	w.log.Debug("Posts loaded", logger.F("count", len(posts)))
	return nil
}

// OpenCreate opens an empty create form
func (w *Workflow) OpenCreate() error {
	return w.open(Form{Mode: ModeCreate})
}

// OpenEdit opens an edit form pre-filled from post
func (w *Workflow) OpenEdit(post model.BlogPost) error {
	return w.open(Form{
		Mode:    ModeEdit,
		PostID:  post.ID,
		Title:   post.Title,
		Content: post.Content,
	})
}

func (w *Workflow) open(f Form) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.closed:
		return ErrClosed
	case w.state == Submitting:
		return ErrBusy
	case w.state == Composing:
		return ErrFormOpen
	}
	w.state = Composing
	w.form = f
	return nil
}

// Cancel closes the form and discards its contents
func (w *Workflow) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case Submitting:
		return ErrBusy
	case Browsing:
		return ErrNotComposing
	}
	w.state = Browsing
	w.form = Form{}
	return nil
}

// SetTitle edits the open form
func (w *Workflow) SetTitle(title string) error {
	return w.edit(func(f *Form) { f.Title = title })
}

// SetContent edits the open form
func (w *Workflow) SetContent(content string) error {
	return w.edit(func(f *Form) { f.Content = content })
}

// SetImage edits the open form. nil clears the chosen image.
func (w *Workflow) SetImage(image *model.ImageUpload) error {
	return w.edit(func(f *Form) { f.Image = image })
}

func (w *Workflow) edit(fn func(*Form)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	switch w.state {
	case Submitting:
		return ErrBusy
	case Browsing:
		return ErrNotComposing
	}
	fn(&w.form)
	return nil
}

// validate checks the form locally. The image is only required when creating.
func (f Form) validate() error {
	if f.Mode == ModeCreate && (f.Image == nil || len(f.Image.Data) == 0) {
		return &api.ValidationError{Message: "Please select an image"}
	}
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Content) == "" {
		return &api.ValidationError{Message: "Title and content are required"}
	}
	return nil
}

// Submit validates the form and sends it. A validation failure keeps the form open
// without any network call. A remote failure returns to Composing with the form kept.
// On success the form closes and the list is reloaded from the server.
func (w *Workflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return ErrClosed
	case w.state == Submitting, w.deleting:
		w.mu.Unlock()
		return ErrBusy
	case w.state != Composing:
		w.mu.Unlock()
		return ErrNotComposing
	}

	form := w.form
	if err := form.validate(); err != nil {
		w.lastErr = err
		w.mu.Unlock()
		w.notify.Error(api.Message(err, "Invalid form"))
		return err
	}
	w.state = Submitting
	w.mu.Unlock()

	var err error
	if form.Mode == ModeCreate {
		_, err = w.repo.Create(ctx, form.Title, form.Content, form.Image)
	} else {
		_, err = w.repo.Update(ctx, form.PostID, form.Title, form.Content, form.Image)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		w.state = Composing
		w.lastErr = err
		w.mu.Unlock()
		w.log.Warn("Saving post failed", logger.F("mode", form.Mode), logger.Err(err))
		w.notify.Error(api.Message(err, "Error saving post"))
		return err
	}
	w.state = Browsing
	w.form = Form{}
	w.lastErr = nil
	w.mu.Unlock()

	if form.Mode == ModeCreate {
		w.log.Info("Post created", logger.F("title", form.Title))
		w.notify.Success("Post created")
	} else {
		w.log.Info("Post updated", logger.F("id", form.PostID))
		w.notify.Success("Post updated")
	}

	if err := w.Load(ctx); err != nil && !errors.Is(err, ErrStale) && !errors.Is(err, ErrClosed) {
		w.log.Warn("Reload after save failed", logger.Err(err))
	}
	return nil
}

// Delete removes the post with id. The caller has already confirmed with the user.
// On failure the list is left exactly as it was. Only one submit or delete runs at a time.
func (w *Workflow) Delete(ctx context.Context, id string) error {
	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return ErrClosed
	case w.state == Submitting, w.deleting:
		w.mu.Unlock()
		return ErrBusy
	}
	w.deleting = true
	w.mu.Unlock()

	err := w.repo.Delete(ctx, id)

	w.mu.Lock()
	w.deleting = false
	if err != nil {
		w.lastErr = err
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Warn("Delete failed", logger.F("id", id), logger.Err(err))
		w.notify.Error(fmt.Sprintf("Delete failed: %s", api.Message(err, "unknown error")))
		return err
	}

	w.log.Info("Post deleted", logger.F("id", id))
	w.notify.Success("Post deleted")

	if err := w.Load(ctx); err != nil && !errors.Is(err, ErrStale) && !errors.Is(err, ErrClosed) {
		w.log.Warn("Reload after delete failed", logger.Err(err))
	}
	return nil
}

// Close marks the workflow's view as gone. Results still in flight are dropped.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}
