package publish

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// NoticeKind tells how a notice should be shown.
type NoticeKind int

const (
	NoticeProgress NoticeKind = iota
	NoticeSuccess
	NoticeError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeProgress:
		return "progress"
	case NoticeSuccess:
		return "success"
	default:
		return "error"
	}
}

// Notice is a message for the user about a background operation.
type Notice struct {
	Kind    NoticeKind
	Message string

	// set on success of compilation and sharing respectively
	Artifact *Artifact
	URL      string

	Err error
}

// Dispatcher runs compilation and sharing on their own goroutines and reports back through callback. Operations
// work on a snapshot of the markup, the document is never touched.
type Dispatcher struct {
	compiler Compiler
	sharer   Sharer
	notify   func(Notice)
	log      *zap.Logger

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewDispatcher creates dispatcher, notify is called from background goroutines, one call at a time.
func NewDispatcher(compiler Compiler, sharer Sharer, notify func(Notice), log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}

	return &Dispatcher{compiler: compiler, sharer: sharer, notify: notify, log: log}
}

func (d *Dispatcher) send(n Notice) {
	if d.notify == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.notify(n)
}

func (d *Dispatcher) fail(err error) {
	message := err.Error()

	var serr *ServiceError
	if errors.As(err, &serr) {
		message = serr.Message
	}

	d.log.Warn("Background operation failed", zap.Error(err))
	d.send(Notice{Kind: NoticeError, Message: message, Err: err})
}

// Compile starts compilation of the markup.
func (d *Dispatcher) Compile(ctx context.Context, markup string) {
	if d.compiler == nil {
		d.fail(errors.New("compilation is not configured"))
		return
	}

	d.wg.Go(func() {
		artifact, err := d.compiler.CompileFromSource(ctx, markup, func(stage Stage) {
			d.send(Notice{Kind: NoticeProgress, Message: string(stage)})
		})
		if err != nil {
			d.fail(err)
			return
		}

		message := "Document compiled"
		if artifact.Cached {
			message = "Document is up to date"
		}

		d.send(Notice{Kind: NoticeSuccess, Message: message, Artifact: artifact})
	})
}

// Share starts sharing of the document.
func (d *Dispatcher) Share(ctx context.Context, docID string) {
	if d.sharer == nil {
		d.fail(errors.New("sharing is not configured"))
		return
	}

	d.wg.Go(func() {
		link, err := d.sharer.Share(ctx, docID)
		if err != nil {
			d.fail(err)
			return
		}

		d.send(Notice{Kind: NoticeSuccess, Message: "Share link: " + link, URL: link})
	})
}

// Wait blocks until all started operations finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
