package commands_test

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"whisperkey/cmd/whisperkey/commands"
	"whisperkey/internal/directory"
)

type cli struct {
	t    *testing.T
	home string
	url  string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv := httptest.NewServer(directory.Handler(directory.NewMemory(), nil, nil))
	t.Cleanup(srv.Close)
	t.Setenv("WHISPERKEY_PASSPHRASE", "")
	return &cli{t: t, home: t.TempDir(), url: srv.URL}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	root := commands.NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--home", c.home, "--directory", c.url}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(stdin string, args ...string) string {
	c.t.Helper()
	out, err := c.run(stdin, args...)
	if err != nil {
		c.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestInitEncryptDecrypt(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("", "-u", "bob", "init")
	if !strings.Contains(out, "Key pair created.") || !strings.Contains(out, "Fingerprint: ") {
		t.Fatalf("init output: %q", out)
	}
	out = c.mustRun("", "-u", "bob", "init")
	if !strings.Contains(out, "Key pair already present.") {
		t.Fatalf("second init output: %q", out)
	}

	ct := strings.TrimSpace(c.mustRun("", "encrypt", "bob", "hello"))
	if !strings.HasPrefix(ct, "v1:") {
		t.Fatalf("ciphertext %q", ct)
	}
	if pt := c.mustRun("", "-u", "bob", "decrypt", ct); strings.TrimSpace(pt) != "hello" {
		t.Fatalf("decrypt = %q", pt)
	}

	long := strings.Repeat("y", 400)
	ct = strings.TrimSpace(c.mustRun(long, "encrypt", "bob", "-"))
	if !strings.HasPrefix(ct, "v2:") {
		t.Fatalf("long ciphertext %q", ct[:8])
	}
	if pt := c.mustRun(ct+"\n", "-u", "bob", "decrypt"); strings.TrimSpace(pt) != long {
		t.Fatal("stdin decrypt mismatch")
	}
}

func TestEncryptToExplicitKey(t *testing.T) {
	c := newCLI(t)
	c.mustRun("", "-u", "carol", "init")
	pub := strings.TrimSpace(c.mustRun("", "-u", "carol", "public-key"))

	ct := strings.TrimSpace(c.mustRun("", "encrypt", "--key", pub, "psst"))
	if pt := c.mustRun("", "-u", "carol", "decrypt", ct); strings.TrimSpace(pt) != "psst" {
		t.Fatalf("decrypt = %q", pt)
	}
}

func TestFingerprintAndPhrase(t *testing.T) {
	c := newCLI(t)
	initOut := c.mustRun("", "-u", "dave", "init")
	fpOut := c.mustRun("", "-u", "dave", "fingerprint")
	if !strings.Contains(initOut, strings.TrimSpace(fpOut)) {
		t.Fatalf("fingerprint %q not in init output %q", fpOut, initOut)
	}

	out := c.mustRun("", "-u", "dave", "phrase")
	first := strings.SplitN(out, "\n", 2)[0]
	if n := len(strings.Fields(first)); n != 24 {
		t.Fatalf("phrase has %d words", n)
	}
}

func TestErrors(t *testing.T) {
	c := newCLI(t)
	if _, err := c.run("", "init"); err == nil {
		t.Error("init without user succeeded")
	}
	if _, err := c.run("", "encrypt", "nobody", "hi"); err == nil {
		t.Error("encrypt to unknown recipient succeeded")
	}
	if _, err := c.run("", "-u", "erin", "decrypt", "v1:AAAA"); err == nil {
		t.Error("decrypt without local key succeeded")
	}
	if _, err := c.run("", "--backend", "tape", "-u", "erin", "init"); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestMetricsFile(t *testing.T) {
	c := newCLI(t)
	path := filepath.Join(t.TempDir(), "whisperkey.prom")

	c.mustRun("", "-u", "dave", "--metrics-file", path, "init")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read metrics file: %v", err)
	}
	if !strings.Contains(string(b), "whisperkey_keypairs_generated_total 1") {
		t.Fatalf("metrics file:\n%s", b)
	}
}

func TestWeakPassphraseRejected(t *testing.T) {
	c := newCLI(t)
	if _, err := c.run("", "-u", "erin", "-p", "hunter2", "init"); err == nil {
		t.Fatal("weak passphrase accepted")
	}
}
