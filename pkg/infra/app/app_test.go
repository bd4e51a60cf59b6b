package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/tutor-x/pkg/infra/app/cliflag"
)

type ragSection struct {
	TopK     int           `mapstructure:"top-k"`
	Language string        `mapstructure:"answer-language"`
	Timeout  time.Duration `mapstructure:"provider-timeout"`
}

type testOptions struct {
	RAG       *ragSection `mapstructure:"rag"`
	completed bool
	invalid   bool
}

func newTestOptions() *testOptions {
	return &testOptions{RAG: &ragSection{TopK: 20, Language: "Vietnamese", Timeout: time.Minute}}
}

func (o *testOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("rag")
	fs.IntVar(&o.RAG.TopK, "rag.top-k", o.RAG.TopK, "top k")
	fs.StringVar(&o.RAG.Language, "rag.answer-language", o.RAG.Language, "language")
	fs.DurationVar(&o.RAG.Timeout, "rag.provider-timeout", o.RAG.Timeout, "timeout")
	return fss
}

func (o *testOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *testOptions) Validate() error {
	if o.invalid {
		return errors.New("invalid options")
	}
	return nil
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tutor-test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestApp_ConfigFlagPrecedence(t *testing.T) {
	cfg := writeConfig(t, "rag:\n  top-k: 8\n  answer-language: English\n  provider-timeout: 5s\n")

	opts := newTestOptions()
	ran := false
	a := NewApp(
		WithName("tutor-test"),
		WithNoVersion(),
		WithOptions(opts),
		WithRunFunc(func() error { ran = true; return nil }),
	)
	a.Command().SetArgs([]string{"--config", cfg, "--rag.top-k=3"})

	require.NoError(t, a.Command().Execute())
	assert.True(t, ran)
	assert.True(t, opts.completed)
	assert.Equal(t, 3, opts.RAG.TopK, "flag wins over file")
	assert.Equal(t, "English", opts.RAG.Language)
	assert.Equal(t, 5*time.Second, opts.RAG.Timeout)
}

func TestApp_EnvOverridesDefault(t *testing.T) {
	t.Setenv("TUTOR_TEST_RAG_ANSWER_LANGUAGE", "French")

	opts := newTestOptions()
	a := NewApp(WithName("tutor-test"), WithNoVersion(), WithOptions(opts))
	a.Command().SetArgs([]string{})

	require.NoError(t, a.Command().Execute())
	assert.Equal(t, "French", opts.RAG.Language)
	assert.Equal(t, 20, opts.RAG.TopK)
}

func TestApp_ExpandsEnvInConfig(t *testing.T) {
	t.Setenv("TUTOR_LANG", "German")
	cfg := writeConfig(t, "rag:\n  answer-language: ${TUTOR_LANG}\n")

	opts := newTestOptions()
	a := NewApp(WithName("tutor-test"), WithNoVersion(), WithOptions(opts))
	a.Command().SetArgs([]string{"-c", cfg})

	require.NoError(t, a.Command().Execute())
	assert.Equal(t, "German", opts.RAG.Language)
}

func TestApp_ValidateFails(t *testing.T) {
	opts := newTestOptions()
	opts.invalid = true
	ran := false
	a := NewApp(
		WithName("tutor-test"),
		WithNoVersion(),
		WithNoConfig(),
		WithOptions(opts),
		WithRunFunc(func() error { ran = true; return nil }),
	)
	a.Command().SetArgs([]string{})
	a.Command().SilenceErrors = true

	assert.Error(t, a.Command().Execute())
	assert.False(t, ran)
}

func TestApp_MissingExplicitConfig(t *testing.T) {
	a := NewApp(WithName("tutor-test"), WithNoVersion(), WithOptions(newTestOptions()))
	a.Command().SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	a.Command().SilenceErrors = true

	assert.Error(t, a.Command().Execute())
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "TUTOR_RAG", NewApp(WithName("tutor-rag")).EnvPrefix())
}
