package requester

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lskk/go-request/pkg/download"
	"github.com/lskk/go-request/pkg/notify"
)

const warningDuration = 2 * time.Second

func (r *Requester) handleResponse(ctx context.Context, o Options, res *http.Response, body []byte) (Result, error) {
	payload, err := decodePayload(res, body)
	if err != nil {
		r.logger.Debug("response is not a JSON envelope", zap.String("action", o.Action), zap.Error(err))
	}

	if r.redirector != nil {
		r.redirector.HandleSuccess(payload.Code(), payload.DataString("redirectUrl"))
	}

	// Business success
	if payload.Success {
		return Result{Kind: KindSuccess, Payload: payload}, nil
	}

	// File download
	if disposition := res.Header.Get("Content-Disposition"); disposition != "" {
		result := Result{Kind: KindDownload, Payload: payload, Filename: download.Filename(disposition)}
		if r.downloads != nil {
			key, err := r.downloads.Store(ctx, result.Filename, res.Header.Get("Content-Type"), body)
			if err != nil {
				return result, fmt.Errorf(`cannot store downloaded file "%s": %w`, result.Filename, err)
			}
			result.DownloadKey = key
		}
		return result, nil
	}

	// Business error
	if o.ShowWarning {
		msg := notify.Message{
			Type:     notify.TypeWarning,
			Text:     warningMessage(o, payload),
			Duration: warningDuration,
			Closable: true,
		}
		if payload.ErrorMessage == r.systemErrorMarker {
			msg.Type = notify.TypeError
		}
		r.notifier.CloseAll()
		r.notifier.ShowMessage(msg)
		return Result{Kind: KindWarning, Payload: payload, Notified: true}, nil
	}
	if o.ThrowWarningError {
		return Result{Kind: KindWarning, Payload: payload}, &WarningError{Payload: payload}
	}
	return Result{Kind: KindSuppressed, Payload: payload}, nil
}
