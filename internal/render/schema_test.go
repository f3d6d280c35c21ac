package render_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/docforge/internal/render"
)

func TestInferSchema(t *testing.T) {
	got := render.InferSchema([]string{"client_name", "unit_price", "qty", "invoice_date"})

	want := render.Schema{
		"client_name":  {Type: render.FieldString, Title: "Client name"},
		"unit_price":   {Type: render.FieldNumber, Title: "Unit price"},
		"qty":          {Type: render.FieldNumber, Title: "Qty"},
		"invoice_date": {Type: render.FieldString, Title: "Invoice date"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("InferSchema() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"client_name", "invoice_date", "qty", "unit_price"}, got.Names())
}

func TestClassifyByName(t *testing.T) {
	numeric := []string{"Montant_HT", "PRIX", "total_amount", "Quantite", "quantity"}
	for _, name := range numeric {
		assert.Equal(t, render.FieldNumber, render.ClassifyByName(name), name)
	}

	text := []string{"client", "address", "notes"}
	for _, name := range text {
		assert.Equal(t, render.FieldString, render.ClassifyByName(name), name)
	}
}

func TestInferSchemaWith_CustomClassifier(t *testing.T) {
	suffix := func(name string) render.FieldType {
		if strings.HasSuffix(name, "_n") {
			return render.FieldNumber
		}

		return render.FieldString
	}

	got := render.InferSchemaWith([]string{"count_n", "amount"}, suffix)

	assert.Equal(t, render.FieldNumber, got["count_n"].Type)
	assert.Equal(t, render.FieldString, got["amount"].Type)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Unit price", render.Title("unit_price"))
	assert.Equal(t, "Client name", render.Title("CLIENT_NAME"))
	assert.Equal(t, "", render.Title(""))
}
