package prompt

import (
	"testing"

	"sheetprompt/domain/dataset"
	"sheetprompt/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowOf(t *testing.T, names []string, cells []dataset.Cell) dataset.Row {
	t.Helper()
	header, err := dataset.NewHeader(names)
	require.NoError(t, err)
	ds, err := dataset.FromRecords(header, [][]dataset.Cell{cells})
	require.NoError(t, err)
	return ds.Row(0)
}

func TestRenderProductScenario(t *testing.T) {
	row := rowOf(t,
		[]string{"ProductName", "CustomerFeedback"},
		[]dataset.Cell{dataset.Text("Laptop X"), dataset.Text("long battery life")},
	)
	tmpl, err := Parse("Describe {ProductName} focusing on {CustomerFeedback}.")
	require.NoError(t, err)

	got, err := tmpl.Render(row)
	require.NoError(t, err)
	assert.Equal(t, "Describe Laptop X focusing on long battery life.", got)
}

func TestRenderIsDeterministic(t *testing.T) {
	row := rowOf(t, []string{"a"}, []dataset.Cell{dataset.Number(1.25)})
	tmpl := MustParse("value={a}, again={a}")

	first, err := tmpl.Render(row)
	require.NoError(t, err)
	second, err := tmpl.Render(row)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "value=1.25, again=1.25", first)
}

func TestNoPlaceholdersRendersUnchanged(t *testing.T) {
	row := rowOf(t, []string{"bar"}, []dataset.Cell{dataset.Text("x")})
	for _, raw := range []string{"", "Plain prompt with no fields.", "unicode ✓ text"} {
		tmpl := MustParse(raw)
		got, err := tmpl.Render(row)
		require.NoError(t, err)
		assert.Equal(t, raw, got)
		assert.Empty(t, tmpl.Placeholders())
	}
}

func TestMissingColumn(t *testing.T) {
	row := rowOf(t, []string{"bar"}, []dataset.Cell{dataset.Text("x")})

	_, err := MustParse("{foo}").Render(row)
	require.Error(t, err)
	assert.True(t, errors.IsMissingColumn(err))
	assert.Equal(t, "foo", errors.GetDetail(err))
}

func TestEmptyCellRendersEmpty(t *testing.T) {
	row := rowOf(t, []string{"a", "b"}, []dataset.Cell{dataset.Text("x")})
	got, err := MustParse("[{a}][{b}]").Render(row)
	require.NoError(t, err)
	assert.Equal(t, "[x][]", got)
}

func TestLiteralBracesAreErrors(t *testing.T) {
	row := rowOf(t, []string{"a"}, []dataset.Cell{dataset.Text("x")})

	tests := []struct {
		name      string
		raw       string
		parseFail bool
	}{
		{"unterminated", "json: {a", true},
		{"stray close", "a} b", true},
		{"empty placeholder", "set {} here", false},
		{"json object", `{"key": 1}`, false},
		{"nested open", "{a{b}", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.raw)
			if tt.parseFail {
				require.Error(t, err)
				assert.True(t, errors.IsMissingColumn(err))
				return
			}
			require.NoError(t, err)
			_, err = tmpl.Render(row)
			require.Error(t, err)
			assert.True(t, errors.IsMissingColumn(err))
		})
	}
}

func TestPlaceholdersAndValidate(t *testing.T) {
	tmpl := MustParse("{b} then {a} then {b}")
	assert.Equal(t, []string{"b", "a"}, tmpl.Placeholders())

	header, err := dataset.NewHeader([]string{"a", "b"})
	require.NoError(t, err)
	assert.NoError(t, tmpl.Validate(header))

	header, err = dataset.NewHeader([]string{"a"})
	require.NoError(t, err)
	err = tmpl.Validate(header)
	require.Error(t, err)
	assert.Equal(t, "b", errors.GetDetail(err))
}

func TestPlaceholderNamesAreExact(t *testing.T) {
	row := rowOf(t, []string{"Name"}, []dataset.Cell{dataset.Text("x")})

	_, err := MustParse("{ Name }").Render(row)
	assert.True(t, errors.IsMissingColumn(err))

	_, err = MustParse("{name}").Render(row)
	assert.True(t, errors.IsMissingColumn(err))
}
