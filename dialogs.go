package familygraph

import (
	"context"
	"net/url"

	"github.com/jrsteele09/go-familygraph/dialog"
	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
)

// Dialog shows the dialog for action, e.g. "feed", in the background.
func (fg *FamilyGraph) Dialog(ctx context.Context, action string, delegate dialog.Delegate) (*dialog.Dialog, error) {
	return fg.DialogWithParams(ctx, action, nil, delegate)
}

// DialogWithParams shows the dialog for action in the background. A dialog
// already on screen is dismissed first and its delegate told DidNotComplete.
func (fg *FamilyGraph) DialogWithParams(ctx context.Context, action string, params url.Values, delegate dialog.Delegate) (*dialog.Dialog, error) {
	d := dialog.New(action, params, delegate)

	fg.mu.Lock()
	if fg.closed {
		fg.mu.Unlock()
		return nil, errClosed()
	}
	fg.wg.Add(1)
	fg.mu.Unlock()

	go func() {
		defer fg.wg.Done()
		ctx, stop := fg.bind(ctx)
		defer stop()
		_ = d.Show(ctx, fg.runner, fg.dialogTarget())
	}()
	return d, nil
}

// ShowDialog is DialogWithParams that blocks until the dialog ends.
func (fg *FamilyGraph) ShowDialog(ctx context.Context, action string, params url.Values, delegate dialog.Delegate) error {
	if err := fg.checkOpen(); err != nil {
		return err
	}
	ctx, stop := fg.bind(ctx)
	defer stop()
	return dialog.New(action, params, delegate).Show(ctx, fg.runner, fg.dialogTarget())
}

func (fg *FamilyGraph) dialogTarget() dialog.Target {
	t := dialog.Target{
		BaseURL:  fg.opts.endpoints.DialogURL,
		ClientID: fg.session.ClientID(),
	}
	if token, ok := fg.session.Credentials(); ok {
		t.AccessToken = token
	}
	return t
}

func errClosed() error {
	return fgerrors.Wrapf(fgerrors.ErrClosed, "[familygraph]")
}
