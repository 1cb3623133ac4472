package builder

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qobs-build/ninjascan/internal/builder/gen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates empty files (and their parent directories) under root
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
}

func newTestBuilder() (*Builder, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewBuilder(DefaultRules(), WalkOptions{}, gen.NewNinjaGen(&buf)), &buf
}

func TestClassify(t *testing.T) {
	roots, defs := Classify([]string{"src", "cflags=-O2", "lib", "ldflags=-lm -lz", "x=y=z"})
	assert.Equal(t, []string{"src", "lib"}, roots)
	assert.Equal(t, []string{"cflags=-O2", "ldflags=-lm -lz", "x=y=z"}, defs)

	roots, defs = Classify(nil)
	assert.Empty(t, roots)
	assert.Empty(t, defs)
}

func TestAddFileSources(t *testing.T) {
	b, buf := newTestBuilder()
	for _, f := range []string{"foo.cpp", "bar.cc", "baz.c", "dir/q.c"} {
		require.NoError(t, b.AddFile(f))
	}
	assert.Equal(t, "build foo.o: cxx foo.cpp\n"+
		"build bar.o: cxx bar.cc\n"+
		"build baz.o: cc baz.c\n"+
		"build dir/q.o: cc dir/q.c\n", buf.String())
	assert.Equal(t, []string{"foo.o", "bar.o", "baz.o", "dir/q.o"}, b.Objects())
}

func TestAddFilePassthroughObject(t *testing.T) {
	b, buf := newTestBuilder()
	require.NoError(t, b.AddFile("prebuilt/extra.o"))
	assert.Empty(t, buf.String())
	assert.Equal(t, []string{"prebuilt/extra.o"}, b.Objects())
}

func TestAddFileIgnoresUnknown(t *testing.T) {
	b, buf := newTestBuilder()
	for _, f := range []string{"a.h", "notes.txt", "", "Makefile", "A.CPP", "x.cxx", "y.oo"} {
		require.NoError(t, b.AddFile(f))
	}
	assert.Empty(t, buf.String())
	assert.Empty(t, b.Objects())
}

func TestLinkRules(t *testing.T) {
	for output, rule := range map[string]string{
		"mylib.so": "linksharedlib",
		"mylib.a":  "linkstaticlib",
		"myprog":   "link",
		"app.exe":  "link",
		"so":       "link",
	} {
		b, buf := newTestBuilder()
		require.NoError(t, b.Link(output, nil))
		assert.Equal(t, "build bin/"+output+": "+rule+" \n", buf.String(), output)
	}
}

func TestGenerateEmpty(t *testing.T) {
	b, buf := newTestBuilder()
	require.NoError(t, b.Generate("lib.a", nil, strings.NewReader("")))
	assert.Equal(t, "build bin/lib.a: linkstaticlib \n", buf.String())
}

func TestGenerateScenario(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "src/a.cpp", "src/b.c", "src/b.h", "src/README")
	chdir(t, dir)

	b, buf := newTestBuilder()
	require.NoError(t, b.Generate("app", []string{"src"}, strings.NewReader("extra.o\n")))
	assert.Equal(t, "build src/a.o: cxx src/a.cpp\n"+
		"build src/b.o: cc src/b.c\n"+
		"build bin/app: link src/a.o src/b.o extra.o\n", buf.String())
}

func TestGenerateDefinitionsAfterLink(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "src/main.cc")
	chdir(t, dir)

	b, buf := newTestBuilder()
	require.NoError(t, b.Generate("prog", []string{"cflags=-g", "src", "libs=-lm"}, nil))
	assert.Equal(t, "build src/main.o: cxx src/main.cc\n"+
		"build bin/prog: link src/main.o\n"+
		"  cflags=-g\n"+
		"  libs=-lm\n", buf.String())
}

func TestGenerateStdinOrderAndTrim(t *testing.T) {
	b, buf := newTestBuilder()
	list := "  one.c \n\n\tlib/two.o\r\nthree.cpp\nskip.h"
	require.NoError(t, b.Generate("out.so", nil, strings.NewReader(list)))
	assert.Equal(t, "build one.o: cc one.c\n"+
		"build three.o: cxx three.cpp\n"+
		"build bin/out.so: linksharedlib one.o lib/two.o three.o\n", buf.String())
}

func TestGenerateMultipleRootsInArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "b/z.c", "a/y.c")
	chdir(t, dir)

	b, _ := newTestBuilder()
	require.NoError(t, b.Generate("app", []string{"b", "a"}, nil))
	assert.Equal(t, []string{"b/z.o", "a/y.o"}, b.Objects())
}

func TestGenerateMissingRoot(t *testing.T) {
	b, _ := newTestBuilder()
	err := b.Generate("app", []string{filepath.Join(t.TempDir(), "nope")}, nil)
	assert.Error(t, err)
}

func TestGenerateNoOutput(t *testing.T) {
	b, _ := newTestBuilder()
	assert.ErrorIs(t, b.Generate("", nil, nil), errNoOutput)
}

func TestGenerateIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "src/z.c", "src/m/a.cpp", "src/b.cc", "src/k/l/m.c", "src/pre.o")
	chdir(t, dir)

	run := func() string {
		b, buf := newTestBuilder()
		require.NoError(t, b.Generate("app", []string{"src", "k=v"}, strings.NewReader("x.o\n")))
		return buf.String()
	}
	first := run()
	assert.Equal(t, first, run())
	assert.Equal(t, "build src/b.o: cxx src/b.cc\n"+
		"build src/k/l/m.o: cc src/k/l/m.c\n"+
		"build src/m/a.o: cxx src/m/a.cpp\n"+
		"build src/z.o: cc src/z.c\n"+
		"build bin/app: link src/b.o src/k/l/m.o src/m/a.o src/pre.o src/z.o x.o\n"+
		"  k=v\n", first)
}

func TestGenerateSymlinkedRoot(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "real/a.c", "real/sub/b.cc")
	if err := os.Symlink("real", filepath.Join(dir, "src")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	chdir(t, dir)

	b, buf := newTestBuilder()
	require.NoError(t, b.Generate("app", []string{"src"}, nil))
	assert.Equal(t, "build src/a.o: cc src/a.c\n"+
		"build src/sub/b.o: cxx src/sub/b.cc\n"+
		"build bin/app: link src/a.o src/sub/b.o\n", buf.String())
}

func TestGenerateKeepsRootSpelling(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "src/a.c")
	chdir(t, dir)

	for root, obj := range map[string]string{
		"./src": "./src/a.o",
		"src/":  "src/a.o",
		"src":   "src/a.o",
	} {
		b, _ := newTestBuilder()
		require.NoError(t, b.Generate("app", []string{root}, nil))
		assert.Equal(t, []string{obj}, b.Objects(), root)
	}
}

func TestGenerateUnreadableSubdirIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "src/a.c", "src/locked/b.c")
	locked := filepath.Join(dir, "src", "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })
	if _, err := os.ReadDir(locked); err == nil {
		t.Skip("directory permissions are not enforced for this user")
	}
	chdir(t, dir)

	b, buf := newTestBuilder()
	err := b.Generate("app", []string{"src"}, nil)
	assert.Error(t, err)
	assert.NotContains(t, buf.String(), "build bin/app")
}

func TestReadFileListLongLine(t *testing.T) {
	long := strings.Repeat("d/", 600*1024) + "x.c"
	b, buf := newTestBuilder()
	require.NoError(t, b.ReadFileList(strings.NewReader("a.o\n"+long+"\nb.o")))
	assert.Equal(t, []string{"a.o", strings.TrimSuffix(long, ".c") + ".o", "b.o"}, b.Objects())
	assert.Equal(t, "build "+strings.TrimSuffix(long, ".c")+".o: cc "+long+"\n", buf.String())
}
