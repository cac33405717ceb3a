package model

const (
	EffectAllow = "allow"
	EffectDeny  = "deny"
)

// AccessDecision is the engine's answer. Reason is for logs only and is never
// returned to the caller.
type AccessDecision struct {
	Effect string `json:"effect"`
	Reason string `json:"reason,omitempty"`
}

func (d AccessDecision) Allowed() bool {
	return d.Effect == EffectAllow
}

func Allow(reason string) AccessDecision {
	return AccessDecision{Effect: EffectAllow, Reason: reason}
}

func Deny(reason string) AccessDecision {
	return AccessDecision{Effect: EffectDeny, Reason: reason}
}
