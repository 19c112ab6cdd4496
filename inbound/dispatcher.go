package inbound

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-callbridge/core"
	goerrors "github.com/goliatone/go-errors"
)

const (
	// SurfacePush is the data-message transport: the payload carries the
	// whole fact.
	SurfacePush = "push"
	// SurfaceSignaling is the native signaling callback: the payload
	// carries the fact plus the session offer to cache for the answer
	// hand-off.
	SurfaceSignaling = "signaling"
)

const offerPayloadField = "offer_payload"

// CallAdmitter is the coordinator surface the dispatcher drives. Satisfied
// by *core.Service.
type CallAdmitter interface {
	ShowIncomingCall(ctx context.Context, fact core.IncomingCallFact) bool
	CacheIncomingOffer(ctx context.Context, offer core.CachedOffer) error
}

// Verifier authenticates a raw payload before it is parsed. Transports that
// carry their own authenticity (platform push) may leave it nil.
type Verifier interface {
	Verify(ctx context.Context, surface string, payload map[string]any) error
}

// Result reports what the dispatcher did with a payload.
//
// CallFact is false for payloads that are not call facts; Handled mirrors the
// coordinator's consumed/not-consumed verdict so the transport knows whether
// to run its fallback notification.
type Result struct {
	CallFact      bool
	Handled       bool
	ConnectionKey string
}

type Dispatcher struct {
	Admitter CallAdmitter
	Verifier Verifier
}

func NewDispatcher(admitter CallAdmitter) *Dispatcher {
	return &Dispatcher{Admitter: admitter}
}

// Dispatch runs one raw payload through verification, fact parsing, and
// admission. Non-call payloads return a zero-value Result with no error.
func (d *Dispatcher) Dispatch(ctx context.Context, surface string, payload map[string]any) (Result, error) {
	if d == nil {
		return Result{}, inboundInternal("inbound: dispatcher is nil", nil)
	}
	if d.Admitter == nil {
		return Result{}, inboundInternal("inbound: admitter is nil", nil)
	}
	surface = normalizeSurface(surface)
	if !isSupportedSurface(surface) {
		return Result{}, inboundBadInput(
			fmt.Sprintf("inbound: unsupported surface %q", surface),
			map[string]any{"surface": surface},
		)
	}

	if d.Verifier != nil {
		if err := d.Verifier.Verify(ctx, surface, payload); err != nil {
			return Result{}, inboundWrapError(
				err,
				goerrors.CategoryAuth,
				"inbound: payload verification failed",
				http.StatusUnauthorized,
				core.CallbridgeErrorRejected,
				map[string]any{"surface": surface},
			)
		}
	}

	fact, ok := core.ParseFact(payload)
	if !ok {
		return Result{}, nil
	}

	result := Result{CallFact: true, ConnectionKey: fact.ConnectionKey()}

	// A signaling-surface fact carries the session offer; cache it ahead of
	// admission so an immediate answer finds it.
	if surface == SurfaceSignaling && fact.NativeSignaling {
		if offer := offerFromPayload(fact, payload); offer != nil {
			if err := d.Admitter.CacheIncomingOffer(ctx, *offer); err != nil {
				return result, inboundWrapError(
					err,
					goerrors.CategoryOperation,
					"inbound: offer cache write failed",
					http.StatusBadGateway,
					core.CallbridgeErrorStoreFailed,
					map[string]any{"surface": surface, "connection_key": result.ConnectionKey},
				)
			}
		}
	}

	result.Handled = d.Admitter.ShowIncomingCall(ctx, fact)
	return result, nil
}

func offerFromPayload(fact core.IncomingCallFact, payload map[string]any) *core.CachedOffer {
	raw, ok := payload[offerPayloadField]
	if !ok || raw == nil {
		return nil
	}
	value := strings.TrimSpace(fmt.Sprint(raw))
	if value == "" {
		return nil
	}
	offer := &core.CachedOffer{
		CallerKey: fact.CallerKey,
		CallID:    fact.CallID,
		Payload:   value,
	}
	if fact.ServerTsMs != nil {
		offer.ServerTsMs = *fact.ServerTsMs
	}
	return offer
}

func normalizeSurface(surface string) string {
	return strings.ToLower(strings.TrimSpace(surface))
}

func isSupportedSurface(surface string) bool {
	switch surface {
	case SurfacePush, SurfaceSignaling:
		return true
	default:
		return false
	}
}
