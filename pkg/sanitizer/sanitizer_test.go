package sanitizer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/camarasaas/portal/pkg/sanitizer"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"  Admin@CMX.gov ", "admin@cmx.gov"},
		{"joao..silva@camara.gov.br", "joao.silva@camara.gov.br"},
		{".ana.@camara.gov.br", "ana@camara.gov.br"},
		{"not-an-email", "not-an-email"},
		{"a@b@c", "a@b@c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizer.NormalizeEmail(tt.in), tt.in)
	}
}

func TestKeepDigits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "11222333000181", sanitizer.KeepDigits("11.222.333/0001-81"))
	assert.Empty(t, sanitizer.KeepDigits("abc"))
}

func TestSingleLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Câmara Municipal de X", sanitizer.SingleLine("  Câmara\tMunicipal \n de   X "))
	assert.Equal(t, "ab", sanitizer.RemoveControlChars("a\x00b"))
}

func TestApply(t *testing.T) {
	t.Parallel()

	got := sanitizer.Apply(" Câmara  X ", sanitizer.SingleLine, strings.ToUpper)
	assert.Equal(t, "CÂMARA X", got)
}
