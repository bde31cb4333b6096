package command

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bangumi-calendar-service/internal/model"

	"github.com/rs/zerolog"
)

// HandlerFunc runs a command. args are the pattern's capture groups.
// A non-nil error means reply already carries the user-facing failure
// message; the error is kept for logging and analytics only.
type HandlerFunc func(ctx context.Context, args []string) (model.Reply, error)

// Descriptor binds a command name and argument pattern to a handler
type Descriptor struct {
	Name    string
	Usage   string
	Pattern *regexp.Regexp
	Handle  HandlerFunc
}

// Result is the outcome of one dispatch
type Result struct {
	Command string
	Reply   model.Reply
	Err     error
	Elapsed time.Duration
}

// Registry resolves chat messages to descriptors.
// It is built once at startup and read-only afterwards.
type Registry struct {
	descriptors []Descriptor
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a descriptor. Earlier registrations win on overlap.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" || d.Pattern == nil || d.Handle == nil {
		return fmt.Errorf("invalid command descriptor %q", d.Name)
	}
	for _, existing := range r.descriptors {
		if existing.Name == d.Name {
			return fmt.Errorf("command %q already registered", d.Name)
		}
	}
	r.descriptors = append(r.descriptors, d)
	return nil
}

// Commands lists registered commands in registration order
func (r *Registry) Commands() []model.CommandInfo {
	infos := make([]model.CommandInfo, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		infos = append(infos, model.CommandInfo{Name: d.Name, Usage: d.Usage})
	}
	return infos
}

// Match finds the descriptor for a message
func (r *Registry) Match(message string) (Descriptor, []string, bool) {
	message = strings.TrimSpace(message)
	for _, d := range r.descriptors {
		m := d.Pattern.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		return d, m[1:], true
	}
	return Descriptor{}, nil, false
}

// Dispatch runs the command matching message. ok is false when nothing
// matched. A panicking handler is recovered and reported as a generic
// failure; nothing escapes to the host.
func (r *Registry) Dispatch(ctx context.Context, message string) (result Result, ok bool) {
	d, args, ok := r.Match(message)
	if !ok {
		return Result{}, false
	}

	logger := zerolog.Ctx(ctx).With().Str("command", d.Name).Logger()
	ctx = logger.WithContext(ctx)

	start := time.Now()
	result.Command = d.Name
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("Command handler panicked")
			result.Reply = model.PlainReply(msgCommandFailed + msgUnknown)
			result.Err = fmt.Errorf("command %s panicked: %v", d.Name, rec)
		}
		result.Elapsed = time.Since(start)
		ok = true
	}()

	result.Reply, result.Err = d.Handle(ctx, args)
	return result, true
}
