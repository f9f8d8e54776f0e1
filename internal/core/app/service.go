package app

import (
	"context"
	"os"
	"strings"

	domainerrors "implementor/internal/core/errors"
	"implementor/internal/core/ports"
	"implementor/internal/engine/hierarchy"
	"implementor/internal/engine/source"
	"implementor/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ ports.ImplementService = (*App)(nil)

// Service exposes the app through its driving port.
func (a *App) Service() ports.ImplementService {
	return a
}

// Outstanding resolves the ancestor methods the unit in req still has to
// implement, against one snapshot of the autoload table.
func (a *App) Outstanding(ctx context.Context, req ports.OutstandingRequest) (ports.OutstandingResult, error) {
	requestID := uuid.NewString()
	ctx, span := observability.Tracer.Start(ctx, "app.Outstanding",
		trace.WithAttributes(attribute.String("request_id", requestID), attribute.String("path", req.Path)))
	defer span.End()
	logger := a.logger.With("request_id", requestID)

	if err := ctx.Err(); err != nil {
		return ports.OutstandingResult{}, err
	}

	text := req.Text
	if text == "" {
		if strings.TrimSpace(req.Path) == "" {
			return ports.OutstandingResult{}, domainerrors.New(domainerrors.CodeValidationError, "a source path or text is required")
		}
		content, err := os.ReadFile(req.Path)
		if err != nil {
			return ports.OutstandingResult{}, domainerrors.AddContext(
				domainerrors.Wrap(err, domainerrors.CodeNotFound, "unable to read source file"),
				domainerrors.CtxPath, req.Path)
		}
		text = string(content)
	}

	unit := source.NewUnitAt(req.Path, text)
	walker, err := a.walkerFor(a.tables.Load())
	if err != nil {
		return ports.OutstandingResult{}, err
	}

	res, err := walker.ResolveDetailed(ctx, unit)
	if err != nil {
		return ports.OutstandingResult{}, err
	}

	out := ports.OutstandingResult{
		RequestID:    requestID,
		Identifier:   unit.Identifier(),
		Entries:      res.Entries,
		Declarations: hierarchy.Declarations(res.Entries),
		Cycles:       res.Cycles,
	}
	for _, u := range res.Unresolved {
		out.Unresolved = append(out.Unresolved, ports.UnresolvedAncestor{Identifier: u.Identifier, Reason: u.Err.Error()})
	}

	logger.Debug("outstanding methods resolved",
		"identifier", out.Identifier,
		"entries", len(out.Entries),
		"methods", len(out.Declarations),
		"unresolved", len(out.Unresolved),
	)
	return out, nil
}
