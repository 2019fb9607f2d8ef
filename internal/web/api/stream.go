package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/geomd/metaschema/internal/web/websocket"
)

// streamRequest is the data of a "validate" stream message
type streamRequest struct {
	Type    string          `json:"type"`
	Lenient *bool           `json:"lenient"`
	Rules   []string        `json:"rules"`
	Record  json.RawMessage `json:"record"`
}

// streamValidate answers a "validate" message with a "report" message
func (a *API) streamValidate(ctx context.Context, client *websocket.Client, message *websocket.Message) error {
	var req streamRequest
	if len(message.Data) > 0 {
		if err := json.Unmarshal(message.Data, &req); err != nil {
			return fmt.Errorf("invalid validate request: %w", err)
		}
	}
	if len(req.Record) == 0 {
		return errors.New("record is required")
	}

	lenient := a.cfg.Lenient
	if req.Lenient != nil {
		lenient = *req.Lenient
	}
	rules := req.Rules
	if len(rules) == 0 {
		rules = a.cfg.Rules
	}

	_, report, err := a.check(ctx, checkRequest{
		Type:    req.Type,
		Lenient: lenient,
		Rules:   rules,
		Body:    req.Record,
		Format:  formatJSON,
	})
	if err != nil {
		return err
	}
	return client.Reply(message, "report", report)
}
