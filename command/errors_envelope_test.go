package command

import (
	"context"
	"testing"

	"github.com/goliatone/go-callbridge/core"
	goerrors "github.com/goliatone/go-errors"
)

func TestShowIncomingCallMessage_ValidateReturnsRichError(t *testing.T) {
	err := (ShowIncomingCallMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.CallbridgeErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.CallbridgeErrorBadInput, rich.TextCode)
	}
}

func TestShowIncomingCallCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *ShowIncomingCallCommand
	err := cmd.Execute(context.Background(), ShowIncomingCallMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
