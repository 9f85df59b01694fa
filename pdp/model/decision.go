package model

type AccessDecision struct {
	Effect            string   `json:"effect"`
	Reason            string   `json:"reason,omitempty"`
	EvaluatedPolicies []string `json:"evaluated_policies,omitempty"`
	Consulted         []string `json:"consulted,omitempty"`
}

const (
	EffectAllow = "allow"
	EffectDeny  = "deny"
)

func (d *AccessDecision) Allowed() bool {
	return d != nil && d.Effect == EffectAllow
}

// ConsultationRequest is posted to a DAC's point of access
type ConsultationRequest struct {
	Originator string `json:"originator"`
	Operation  string `json:"operation"`
	TargetID   string `json:"targetID"`
	DACID      string `json:"dacID"`
}

// ConsultationResponse is the DAC's verdict
type ConsultationResponse struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason,omitempty"`
}
