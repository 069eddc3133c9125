package action

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
)

var (
	ErrNotFound  = errors.New("text not found on screen")
	ErrAbandoned = errors.New("recovery abandoned")
)

func (e *Executor) clickOnText(ctx context.Context, res *Result) {
	query := strings.TrimSpace(res.Parameter)
	if query == "" {
		res.Err = errEmptyParameter
		e.transition(res, Failed)
		return
	}

	ok, err := e.clickText(ctx, query)
	if err != nil {
		res.Err = err
		e.transition(res, Failed)
		return
	}
	if ok {
		e.caption(fmt.Sprintf("Clicked '%s'", query))
		e.memory.TrackAction(fmt.Sprintf("clicked '%s'", query))
		e.sleep(e.policy.Timing.ClickSettle)
		e.transition(res, VerifiedSuccess)
		return
	}

	e.caption(fmt.Sprintf("Can't find '%s', thinking...", query))
	e.transition(res, Failed)
	e.transition(res, Recovering)

	if err := e.recover(ctx, query); err != nil {
		log.Warn("Recovery failed", "id", res.ID, "query", query, "err", err)
		if errors.Is(err, ErrAbandoned) {
			e.caption("Couldn't complete this action")
		} else {
			e.caption(fmt.Sprintf("Couldn't find '%s'", query))
		}
		res.Err = err
		e.transition(res, Failed)
		return
	}
	res.Recovered = true
	e.transition(res, VerifiedSuccess)
}

// recover runs exactly one recovery round for query.
func (e *Executor) recover(ctx context.Context, query string) error {
	if e.advisor == nil {
		return ErrNotFound
	}

	f := Failure{
		Action:     ClickOnText,
		Parameter:  query,
		ScreenText: e.finder.ScreenText(ctx),
	}
	for _, b := range e.finder.Buttons(ctx) {
		f.Buttons = append(f.Buttons, b.Text)
	}

	cmd, err := e.advisor.Recover(ctx, f)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	log.Info("Recovery suggestion", "action", cmd.Action, "parameter", cmd.Parameter)
	if cmd.Speech != "" {
		e.caption(cmd.Speech)
	}

	switch cmd.Action {
	case ClickOnText:
		alt := strings.TrimSpace(cmd.Parameter)
		if alt == "" || strings.EqualFold(alt, query) {
			return ErrNotFound
		}
		ok, err := e.clickText(ctx, alt)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: alternative %q", ErrNotFound, alt)
		}
		e.caption(fmt.Sprintf("Found it as '%s'", alt))
		e.memory.TrackAction(fmt.Sprintf("clicked '%s'", alt))
		return nil

	case Scroll:
		up := strings.EqualFold(strings.TrimSpace(cmd.Parameter), "up")
		e.caption(fmt.Sprintf("Scrolling %s...", direction(up)))
		if err := e.input.Scroll(up); err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		e.sleep(e.policy.Timing.ScrollSettle)

		ok, err := e.clickText(ctx, query)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: after scrolling %s", ErrNotFound, direction(up))
		}
		e.caption(fmt.Sprintf("Found '%s' after scrolling", query))
		e.memory.TrackAction(fmt.Sprintf("clicked '%s'", query))
		return nil

	case None:
		return ErrAbandoned
	}
	return fmt.Errorf("%w: unsupported suggestion %s", ErrNotFound, cmd.Action)
}

func (e *Executor) clickText(ctx context.Context, query string) (bool, error) {
	el, ok := e.finder.Locate(ctx, query)
	if !ok {
		return false, nil
	}
	c := el.Center()
	if err := e.input.ClickAt(c.X, c.Y); err != nil {
		return false, fmt.Errorf("click %q at %v: %w", query, c, err)
	}
	return true, nil
}
