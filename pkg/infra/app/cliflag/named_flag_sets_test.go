package cliflag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagSet_Order(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("http").String("http.addr", ":8082", "listen address")
	fss.FlagSet("rag").Int("rag.top-k", 20, "top k")
	fss.FlagSet("http").Duration("http.read-timeout", 0, "read timeout")

	assert.Equal(t, []string{"http", "rag"}, fss.Order)
	assert.NotNil(t, fss.FlagSets["http"].Lookup("http.read-timeout"))
}

func TestPrintSections(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("rag").Int("rag.top-k", 20, "Number of candidates.")
	fss.FlagSet("empty")

	var buf bytes.Buffer
	PrintSections(&buf, fss, 0)

	out := buf.String()
	assert.Contains(t, out, "Rag flags:")
	assert.Contains(t, out, "--rag.top-k")
	assert.NotContains(t, out, "Empty flags:")
}
