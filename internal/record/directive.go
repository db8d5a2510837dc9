package record

import (
	"encoding/json"
	"strings"
)

// Action is the closed enumeration of resolver operations a directive (or
// a consumer's default) may select. Re-architected from the original's
// string-keyed attribute lookup into a static set so an unrecognized
// action is a parse failure, not a runtime AttributeError equivalent.
type Action string

const (
	ActionAddRecord                Action = "addRecord"
	ActionAddRecordWithInfo        Action = "addRecordWithInfo"
	ActionDeleteRecord             Action = "deleteRecord"
	ActionDeleteRecordWithInfo     Action = "deleteRecordWithInfo"
	ActionReevaluateRecord         Action = "reevaluateRecord"
	ActionReevaluateRecordWithInfo Action = "reevaluateRecordWithInfo"
)

// IsValid reports whether a is one of the known actions.
func (a Action) IsValid() bool {
	switch a {
	case ActionAddRecord, ActionAddRecordWithInfo,
		ActionDeleteRecord, ActionDeleteRecordWithInfo,
		ActionReevaluateRecord, ActionReevaluateRecordWithInfo:
		return true
	default:
		return false
	}
}

// WithInfo reports whether a is one of the *WithInfo variants.
func (a Action) WithInfo() bool {
	switch a {
	case ActionAddRecordWithInfo, ActionDeleteRecordWithInfo, ActionReevaluateRecordWithInfo:
		return true
	default:
		return false
	}
}

// directiveBody is the shape of the directive object's value:
// {"action": "addRecord"}.
type directiveBody struct {
	Action string `json:"action"`
}

// ParseDirective decodes the raw value extracted from a record's directive
// key into an Action. ok is false if raw is not a well-formed directive
// object, or names an action outside the closed enumeration above — both
// cases the caller treats as a poison directive.
func ParseDirective(raw any) (Action, bool) {
	if raw == nil {
		return "", false
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", false
	}
	var body directiveBody
	if err := json.Unmarshal(b, &body); err != nil {
		return "", false
	}
	action := Action(body.Action)
	if !action.IsValid() {
		return "", false
	}
	return action, true
}

// DefaultDirectiveKey is the top-level key under which a directive object
// is looked for unless the consumer is configured with a different name.
const DefaultDirectiveKey = "senzingStreamLoader"

// DefaultActionForSubcommand picks addRecord for a plain consumer
// subcommand and addRecordWithInfo for its -withinfo sibling, per the
// directive's default-action rule.
func DefaultActionForSubcommand(subcommand string) Action {
	if strings.HasSuffix(subcommand, "-withinfo") {
		return ActionAddRecordWithInfo
	}
	return ActionAddRecord
}
