// identity/address.go

package identity

import (
	"fmt"
	"strings"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
)

// TargetKind classifies a request's target address
type TargetKind int

const (
	TargetCSEBase TargetKind = iota
	TargetHierarchical
	TargetUnstructured
	TargetRemote
)

// Target is a parsed, SP-relative address
type Target struct {
	Kind    TargetKind
	CSEID   string
	Address string
}

// Addressing knows the local CSE's identity and normalises target addresses
// into SP-relative form ("/<cse-id>/...").
type Addressing struct {
	CSEID   string
	CSEName string
}

func NewAddressing(cseID, cseName string) Addressing {
	return Addressing{CSEID: strings.Trim(cseID, "/"), CSEName: cseName}
}

// BaseID is the resource ID of the local CSEBase
func (a Addressing) BaseID() string {
	return "/" + a.CSEID
}

// BaseURI is the hierarchical URI of the local CSEBase
func (a Addressing) BaseURI() string {
	return "/" + a.CSEID + "/" + a.CSEName
}

// Parse accepts SP-absolute ("//sp/cse/..."), SP-relative ("/cse/...") and
// CSE-relative ("name/..." or "prefix-id") addresses.
func (a Addressing) Parse(to string) (Target, error) {
	to = strings.TrimSuffix(strings.TrimSpace(to), "/")
	if to == "" {
		return Target{}, fmt.Errorf("%w: empty target address", echo_errors.ErrBadRequest)
	}

	if strings.HasPrefix(to, "//") {
		rest := strings.TrimPrefix(to, "//")
		idx := strings.Index(rest, "/")
		if idx < 0 {
			return Target{}, fmt.Errorf("%w: address %q has no CSE-ID", echo_errors.ErrBadRequest, to)
		}
		to = rest[idx:]
	}

	if !strings.HasPrefix(to, "/") {
		to = "/" + a.CSEID + "/" + to
	}

	segments := strings.SplitN(strings.TrimPrefix(to, "/"), "/", 2)
	cseID := segments[0]
	if cseID != a.CSEID {
		return Target{Kind: TargetRemote, CSEID: cseID, Address: to}, nil
	}
	if len(segments) == 1 || segments[1] == "" {
		return Target{Kind: TargetCSEBase, CSEID: cseID, Address: a.BaseID()}, nil
	}
	rest := segments[1]
	if rest == a.CSEName || strings.HasPrefix(rest, a.CSEName+"/") {
		return Target{Kind: TargetHierarchical, CSEID: cseID, Address: to}, nil
	}
	return Target{Kind: TargetUnstructured, CSEID: cseID, Address: to}, nil
}

// NodeOf extracts the CSE-ID from an SP-relative address or resource ID
func NodeOf(address string) string {
	segments := strings.SplitN(strings.TrimPrefix(address, "/"), "/", 2)
	return segments[0]
}
