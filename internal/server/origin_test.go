package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func requestWithOrigin(origin string) *http.Request {
	r, _ := http.NewRequest(http.MethodGet, "/ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestOriginPolicyAllowsConfiguredOrigin(t *testing.T) {
	policy := newOriginPolicy([]string{"http://localhost:8080"})

	assert.True(t, policy.check(requestWithOrigin("http://localhost:8080")))
	assert.True(t, policy.check(requestWithOrigin("HTTP://LOCALHOST:8080")), "matching is case-insensitive")
}

func TestOriginPolicyBlocksUnknownOrigin(t *testing.T) {
	policy := newOriginPolicy([]string{"http://localhost:8080"})

	assert.False(t, policy.check(requestWithOrigin("http://evil.example.com")))
}

func TestOriginPolicyBlocksMissingOrigin(t *testing.T) {
	policy := newOriginPolicy([]string{"*"})

	assert.False(t, policy.check(requestWithOrigin("")))
}

func TestOriginPolicyWildcardAllowsAny(t *testing.T) {
	policy := newOriginPolicy([]string{"*"})

	assert.True(t, policy.check(requestWithOrigin("http://anywhere.example.com")))
}

func TestOriginPolicyIgnoresInvalidConfiguredOrigins(t *testing.T) {
	policy := newOriginPolicy([]string{"not a url", "", "http://localhost:8080"})

	assert.True(t, policy.check(requestWithOrigin("http://localhost:8080")))
	assert.False(t, policy.check(requestWithOrigin("not a url")))
}
