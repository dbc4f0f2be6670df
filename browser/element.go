package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

// element wraps a Rod element handle. Implements finder.Element.
type element struct {
	el *rod.Element
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

// Interactable checks that the element supports the expected interaction
// kind: fillable controls for fill, enabled controls for click, anything
// attached for read.
func (e *element) Interactable(ctx context.Context, kind strategy.Interaction) (bool, error) {
	el := e.el.Context(ctx)

	tag, err := tagName(el)
	if err != nil {
		return false, err
	}

	switch kind {
	case strategy.InteractFill:
		if tag == "textarea" || tag == "select" {
			return !isDisabled(el), nil
		}
		if tag == "input" {
			if t, err := el.Attribute("type"); err == nil && t != nil {
				switch strings.ToLower(*t) {
				case "hidden", "submit", "button", "checkbox", "radio", "image":
					return false, nil
				}
			}
			return !isDisabled(el), nil
		}
		if editable, err := el.Attribute("contenteditable"); err == nil && editable != nil && *editable != "false" {
			return true, nil
		}
		return false, nil

	case strategy.InteractClick:
		return !isDisabled(el), nil

	case strategy.InteractRead:
		return true, nil

	default:
		return false, fmt.Errorf("browser: unknown interaction kind %q", kind)
	}
}

// Fill clears the control and types the value.
func (e *element) Fill(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	// Existing content is selected and replaced by the input below.
	_ = el.SelectAllText()
	if err := el.Input(value); err != nil {
		return fmt.Errorf("browser: fill: %w", err)
	}
	return nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click: %w", err)
	}
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	text, err := e.el.Context(ctx).Text()
	if err != nil {
		return "", fmt.Errorf("browser: read text: %w", err)
	}
	return text, nil
}

func tagName(el *rod.Element) (string, error) {
	res, err := el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return "", fmt.Errorf("browser: tag name: %w", err)
	}
	return res.Value.Str(), nil
}

func isDisabled(el *rod.Element) bool {
	d, err := el.Attribute("disabled")
	return err == nil && d != nil
}
