package domain_test

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
)

func testProject() *domain.Project {
	p := domain.DefaultProject("/work")
	p.Toolchain.Compiler = "clang"
	return p
}

func TestProject_ObjectPath(t *testing.T) {
	p := testProject()

	tests := []struct {
		unit domain.SourceUnit
		want string
	}{
		{unit: "/work/lib/layec_ir.c", want: filepath.Join("/work/out", "o", "layec_ir.c.o")},
		{unit: "/work/lib/laye/laye_sema.c", want: filepath.Join("/work/out", "o", "laye_sema.c.o")},
		{unit: "relative.c", want: filepath.Join("/work/out", "o", "relative.c.o")},
	}

	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			assert.Equal(t, tt.want, p.ObjectPath(tt.unit))
			// Same input, same output.
			assert.Equal(t, p.ObjectPath(tt.unit), p.ObjectPath(tt.unit))
		})
	}
}

func TestProject_ObjectPath_BasenameCollision(t *testing.T) {
	p := testProject()

	assert.Equal(t, p.ObjectPath("/work/a/util.c"), p.ObjectPath("/work/b/util.c"))
}

func TestProject_LibraryObjects(t *testing.T) {
	p := testProject()
	p.Sources = []domain.SourceUnit{"/work/a.c", "/work/b.c", "/work/main.c"}

	assert.Equal(t, []string{
		filepath.Join("/work/out", "o", "a.c.o"),
		filepath.Join("/work/out", "o", "b.c.o"),
	}, p.LibraryObjects())
	assert.Len(t, p.Objects(), 3)
	assert.Equal(t, domain.SourceUnit("/work/main.c"), p.EntryUnit())
}

func TestProject_CompileFlags(t *testing.T) {
	p := testProject()
	p.Toolchain.Flags = []string{"-std=c17"}

	p.Toolchain.Sanitize = true
	assert.Equal(t, []string{"-std=c17", "-fsanitize=address"}, p.CompileFlags())

	p.Toolchain.Sanitize = false
	assert.Equal(t, []string{"-std=c17"}, p.CompileFlags())
	assert.Equal(t, []string{"clang", "-std=c17"}, p.CommandTemplate())
}

func TestProject_CompileFlags_DoesNotAlias(t *testing.T) {
	p := testProject()
	p.Toolchain.Flags = make([]string, 1, 8)
	p.Toolchain.Flags[0] = "-O0"
	p.Toolchain.Sanitize = true

	_ = p.CompileFlags()
	assert.Equal(t, []string{"-O0"}, p.Toolchain.Flags)
}

func TestProject_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Project)
		wantErr error
	}{
		{name: "defaults", mutate: func(*domain.Project) {}},
		{name: "no sources", mutate: func(p *domain.Project) { p.Sources = nil }, wantErr: domain.ErrNoSources},
		{name: "no compiler", mutate: func(p *domain.Project) { p.Toolchain.Compiler = "" }, wantErr: domain.ErrMissingCompiler},
		{
			name:    "no extension",
			mutate:  func(p *domain.Project) { p.Tests.Extension = "" },
			wantErr: domain.ErrMissingTestExtension,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProject()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProject_IsExecTest(t *testing.T) {
	p := testProject()

	assert.Equal(t, ".noexec.laye", p.NoExecExtension())
	assert.True(t, p.IsExecTest("add.laye"))
	assert.False(t, p.IsExecTest("foo.noexec.laye"))
	assert.False(t, p.IsExecTest("README.md"))
	assert.False(t, p.IsExecTest("add.laye.out"))
}

func TestArtifactPath(t *testing.T) {
	got := domain.ArtifactPath("test/laye/add.laye")
	if runtime.GOOS == "windows" {
		assert.Equal(t, "test/laye/add.laye.out.exe", got)
		return
	}
	assert.Equal(t, "test/laye/add.laye.out", got)
}

func TestVerdict_NeedsRebuild(t *testing.T) {
	assert.True(t, domain.VerdictStale.NeedsRebuild())
	assert.True(t, domain.VerdictUnknown.NeedsRebuild())
	assert.False(t, domain.VerdictFresh.NeedsRebuild())
	assert.Equal(t, "unknown", domain.VerdictUnknown.String())
}

func TestParseExpectation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "zero", input: "// 0\nfoo();\n", want: 0},
		{name: "no space", input: "//42\n", want: 42},
		{name: "negative", input: "// -3 trailing words\n", want: -3},
		{name: "explicit plus", input: "//\t+7", want: 7},
		{name: "missing comment", input: "int main() {}\n", wantErr: true},
		{name: "comment without number", input: "// expected ok\n", wantErr: true},
		{name: "leading whitespace", input: "  // 1\n", wantErr: true},
		{name: "empty file", input: "", wantErr: true},
		{name: "overflow", input: "// 99999999999999999999999\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseExpectation(strings.NewReader(tt.input))
			if tt.wantErr {
				require.ErrorContains(t, err, domain.ErrInvalidExpectation.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuiteReport(t *testing.T) {
	t.Run("empty suite does not divide", func(t *testing.T) {
		var r domain.SuiteReport
		assert.Equal(t, 0, r.Total())
		assert.Equal(t, 0, r.Percent())
		assert.True(t, r.OK())
	})

	t.Run("floors the percentage", func(t *testing.T) {
		var r domain.SuiteReport
		r.Add(domain.TestRunRecord{Case: domain.NewTestCase("a.laye"), Outcome: domain.OutcomePassed})
		r.Add(domain.TestRunRecord{Case: domain.NewTestCase("b.laye"), Outcome: domain.OutcomeMismatch})
		r.Add(domain.TestRunRecord{Case: domain.NewTestCase("c.laye"), Outcome: domain.OutcomePassed})

		assert.Equal(t, 3, r.Total())
		assert.Equal(t, 2, r.Passed())
		assert.Equal(t, 66, r.Percent())
		require.Len(t, r.Failed(), 1)
		assert.Equal(t, "b.laye", r.Failed()[0].Case.Name)
		assert.False(t, r.OK())
	})
}
