// federation/remote.go
package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/middleware"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

// Dispatcher executes a request primitive against one node's resource tree
type Dispatcher interface {
	Handle(ctx context.Context, req *model.RequestPrimitive) *model.ResponsePrimitive
}

// Remote carries a request primitive to another node. A transport failure
// is returned as an error; a processed request, whatever its status, as a
// response.
type Remote interface {
	Send(ctx context.Context, req *model.RequestPrimitive) (*model.ResponsePrimitive, error)
}

// LocalRemote reaches a node hosted in the same process
type LocalRemote struct {
	dispatcher Dispatcher
}

func NewLocalRemote(dispatcher Dispatcher) *LocalRemote {
	return &LocalRemote{dispatcher: dispatcher}
}

func (r *LocalRemote) Send(ctx context.Context, req *model.RequestPrimitive) (*model.ResponsePrimitive, error) {
	return r.dispatcher.Handle(ctx, req), nil
}

// HTTPRemote posts JSON request primitives to another node's /primitive
// endpoint. With a shared secret each request carries a bearer token naming
// its originator.
type HTTPRemote struct {
	baseURL string
	secret  string
	client  *http.Client
}

const tokenLifetime = time.Minute

func NewHTTPRemote(baseURL, secret string, timeout time.Duration) *HTTPRemote {
	return &HTTPRemote{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		secret:  secret,
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRemote) Send(ctx context.Context, req *model.RequestPrimitive) (*model.ResponsePrimitive, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request primitive: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/primitive", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", echo_errors.ErrTargetNotReachable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-M2M-Origin", req.From)
	httpReq.Header.Set("X-M2M-RI", req.RequestIdentifier)
	if r.secret != "" {
		token, err := r.sign(req.From)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", echo_errors.ErrTargetNotReachable, err)
	}
	defer resp.Body.Close()

	var primitive model.ResponsePrimitive
	if err := json.NewDecoder(resp.Body).Decode(&primitive); err != nil {
		return nil, fmt.Errorf("%w: undecodable response (HTTP %d): %v", echo_errors.ErrTargetNotReachable, resp.StatusCode, err)
	}
	// Anything short of a response primitive means the peer never processed
	// the request
	if primitive.StatusCode == 0 {
		return nil, fmt.Errorf("%w: peer answered HTTP %d without a response status", echo_errors.ErrTargetNotReachable, resp.StatusCode)
	}
	return &primitive, nil
}

func (r *HTTPRemote) sign(originator string) (string, error) {
	now := time.Now()
	claims := middleware.OriginatorClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   originator,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(tokenLifetime).Unix(),
		},
		Originator: originator,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(r.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign originator token: %w", err)
	}
	return token, nil
}
