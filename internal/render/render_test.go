package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/render"
	"github.com/MrJamesThe3rd/docforge/internal/testutil"
)

func TestDetect(t *testing.T) {
	assert.Equal(t, render.FormatText, render.Detect([]byte("Hello {{ name }}")))
	assert.Equal(t, render.FormatDOCX, render.Detect(testutil.DOCX(t, testutil.Run("x"))))
}

func TestEngine_RenderText(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]any
		want     string
		wantKind *apperr.Kind
	}{
		{
			name:     "fills placeholders",
			template: "Devis {{ doc_number }} pour {{ client }}: {{ amount }} EUR",
			data:     map[string]any{"doc_number": "DEVIS-2025-0001", "client": "Acme", "amount": "100"},
			want:     "Devis DEVIS-2025-0001 pour Acme: 100 EUR",
		},
		{
			// Drafts are partial: a missing field renders blank instead of failing.
			name:     "missing variable renders blank",
			template: "Client: [{{ client }}]",
			data:     map[string]any{},
			want:     "Client: []",
		},
		{
			name:     "text output is not html escaped",
			template: "{{ client }}",
			data:     map[string]any{"client": "Smith & <Sons>"},
			want:     "Smith & <Sons>",
		},
		{
			name:     "extra and non identifier keys are ignored",
			template: "{{ client }}",
			data:     map[string]any{"client": "Acme", "not-an-identifier": "x", "unused": "y"},
			want:     "Acme",
		},
		{
			name:     "conditionals",
			template: "{% if discount %}-{{ discount }}{% else %}none{% endif %}",
			data:     map[string]any{"discount": "10"},
			want:     "-10",
		},
		{
			name:     "unclosed tag is malformed",
			template: "{% if client %}no end",
			data:     map[string]any{},
			wantKind: apperr.ErrMalformedTemplate,
		},
		{
			name:     "include is not allowed",
			template: `{% include "/etc/passwd" %}`,
			data:     map[string]any{},
			wantKind: apperr.ErrMalformedTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render.NewEngine().Render([]byte(tt.template), tt.data)

			if tt.wantKind != nil {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, tt.wantKind), "got %v", err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEngine_RenderDOCX(t *testing.T) {
	engine := render.NewEngine()

	t.Run("placeholder split across runs", func(t *testing.T) {
		tpl := testutil.DOCX(t,
			testutil.Run("Client: {{ cli")+testutil.Run("ent }}"),
			testutil.Run("{")+testutil.Run("{ amount }")+testutil.Run("}"),
		)

		out, err := engine.Render(tpl, map[string]any{"client": "Acme", "amount": "100"})
		require.NoError(t, err)

		doc := testutil.DocumentXML(t, out)
		assert.Contains(t, doc, "Client: Acme")
		assert.Contains(t, doc, "<w:t>100</w:t>")
		assert.NotContains(t, doc, "{{")
		assert.Equal(t, render.FormatDOCX, render.Detect(out))
	})

	t.Run("values are xml escaped", func(t *testing.T) {
		tpl := testutil.DOCX(t, testutil.Run("{{ client }}"))

		out, err := engine.Render(tpl, map[string]any{"client": "Smith & Sons"})
		require.NoError(t, err)

		assert.Contains(t, testutil.DocumentXML(t, out), "Smith &amp; Sons")
	})

	t.Run("word smart quotes inside tags", func(t *testing.T) {
		tpl := testutil.DOCX(t, testutil.Run(`{% if kind == “quote” %}Q{% endif %}`))

		out, err := engine.Render(tpl, map[string]any{"kind": "quote"})
		require.NoError(t, err)

		assert.Contains(t, testutil.DocumentXML(t, out), "<w:t>Q</w:t>")
	})

	t.Run("broken archive is malformed", func(t *testing.T) {
		_, err := engine.Render([]byte("PK\x03\x04garbage"), nil)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.ErrMalformedTemplate))
	})
}
