package magicvar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandFilename(t *testing.T) {
	r := &Resolver{RawFileName: "sample_001.dat"}
	got, err := r.Expand("${filename}")
	require.NoError(t, err)
	assert.Equal(t, "sample_001.dat", got)
}

func TestExpandInvoiceBasicField(t *testing.T) {
	r := &Resolver{
		InvoiceSource: map[string]any{
			"basic": map[string]any{"dataOwnerId": "owner-1"},
		},
	}
	got, err := r.Expand("prefix_${invoice:basic:dataOwnerId}_suffix")
	require.NoError(t, err)
	assert.Equal(t, "prefix_owner-1_suffix", got)
}

func TestExpandMissingFieldIsFatal(t *testing.T) {
	r := &Resolver{InvoiceSource: map[string]any{"basic": map[string]any{}}}
	_, err := r.Expand("${invoice:basic:missing}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestExpandEmptyValueCollapsesUnderscore(t *testing.T) {
	r := &Resolver{
		InvoiceSource: map[string]any{
			"basic": map[string]any{"dataOwnerId": ""},
		},
	}
	got, err := r.Expand("a_${invoice:basic:dataOwnerId}_b")
	require.NoError(t, err)
	assert.Equal(t, "a_b", got)
	assert.NotContains(t, got, "__")
}

func TestExpandSampleNamesJoinsNonEmpty(t *testing.T) {
	r := &Resolver{
		InvoiceSource: map[string]any{
			"sample": map[string]any{"names": []any{"foo", "", "bar"}},
		},
	}
	got, err := r.Expand("${invoice:sample:names}")
	require.NoError(t, err)
	assert.Equal(t, "foo_bar", got)
}

func TestExpandMetadataConstant(t *testing.T) {
	r := &Resolver{
		MetadataSource: map[string]any{
			"constant": map[string]any{
				"temperature": map[string]any{"value": float64(25)},
			},
		},
	}
	got, err := r.Expand("${metadata:constant:temperature}")
	require.NoError(t, err)
	assert.Equal(t, "25", got)
}

func TestExpandMetadataWithoutSourceIsFatal(t *testing.T) {
	r := &Resolver{}
	_, err := r.Expand("${metadata:constant:temperature}")
	require.Error(t, err)
}

func TestExpandUnsupportedPrefixIsFatal(t *testing.T) {
	r := &Resolver{}
	_, err := r.Expand("${bogus}")
	require.Error(t, err)
}
