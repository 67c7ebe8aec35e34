package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw        string
		wantValue  string
		wantKind   Kind
		wantDigits string
		wantUser   string
		wantDomain string
	}{
		{raw: "1001", wantValue: "1001", wantKind: KindExtension},
		{raw: " 10 01 ", wantValue: "1001", wantKind: KindExtension},
		{raw: "0084987654321", wantValue: "0084987654321", wantKind: KindE164, wantDigits: "84987654321"},
		{raw: "+84 98 765 4321", wantValue: "+84987654321", wantKind: KindE164, wantDigits: "84987654321"},
		{raw: "123456", wantValue: "123456", wantKind: KindE164, wantDigits: "123456"},
		{raw: "2002@t2.local", wantValue: "2002@t2.local", wantKind: KindSIPURI, wantUser: "2002", wantDomain: "t2.local"},
		{raw: "*91001", wantValue: "*91001", wantKind: KindOpaque},
		{raw: "abc", wantValue: "abc", wantKind: KindOpaque},
		{raw: "1", wantValue: "1", wantKind: KindOpaque},
		{raw: "", wantValue: "", wantKind: KindOpaque},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			d := Normalize(tt.raw)
			assert.Equal(t, tt.raw, d.Raw)
			assert.Equal(t, tt.wantValue, d.Value)
			assert.Equal(t, tt.wantKind, d.Kind, "kind %s", d.Kind)
			assert.Equal(t, tt.wantDigits, d.Digits)
			assert.Equal(t, tt.wantUser, d.User)
			assert.Equal(t, tt.wantDomain, d.Domain)
		})
	}
}

func TestExtensionShapedIndependentOfKind(t *testing.T) {
	t.Parallel()

	d := Normalize("123456")
	assert.Equal(t, KindE164, d.Kind)
	assert.True(t, d.ExtensionShaped())
	assert.False(t, Normalize("1234567").ExtensionShaped())
}
