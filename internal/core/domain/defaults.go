package domain

import (
	"os"
	"path/filepath"
)

// DefaultSources lists the translation units of the layec compiler. The last entry holds main.
var DefaultSources = []SourceUnit{
	"./lib/layec_shared.c",
	"./lib/layec_context.c",
	"./lib/layec_depgraph.c",
	"./lib/layec_ir.c",
	"./lib/irpass/validate.c",
	"./lib/layec_llvm.c",
	"./lib/laye/laye_data.c",
	"./lib/laye/laye_debug.c",
	"./lib/laye/laye_parser.c",
	"./lib/laye/laye_sema.c",
	"./lib/laye/laye_irgen.c",
	"./src/layec.c",
}

// DefaultFlags are the compile flags applied to every invocation, before the sanitizer flag.
var DefaultFlags = []string{
	"-I", "include",
	"-std=c17",
	"-pedantic",
	"-pedantic-errors",
	"-ggdb",
	"-Werror=return-type",
	"-D__USE_POSIX",
	"-D_XOPEN_SOURCE=600",
}

// DefaultCompiler returns $CC when set and "cc" otherwise.
func DefaultCompiler() string {
	if cc := os.Getenv("CC"); cc != "" {
		return cc
	}
	return "cc"
}

// DefaultProject returns the built-in project layout rooted at root.
func DefaultProject(root string) *Project {
	sources := make([]SourceUnit, len(DefaultSources))
	for i, unit := range DefaultSources {
		sources[i] = SourceUnit(filepath.Join(root, unit.Path()))
	}

	buildDir := filepath.Join(root, "out")
	testOut := filepath.Join(root, "test-out")

	return &Project{
		Root: root,
		Toolchain: Toolchain{
			Compiler: DefaultCompiler(),
			Flags:    append([]string(nil), DefaultFlags...),
			Sanitize: true,
		},
		HeadersDir: filepath.Join(root, "include"),
		Sources:    sources,
		BuildDir:   buildDir,
		ObjectDir:  "o",
		Driver:     Executable{Name: "layec"},
		TestRunner: TestRunner{
			Name:   "exec_test_runner",
			Source: filepath.Join(root, "src", "exec_test_runner.c"),
		},
		Fuzzer: Fuzzer{
			Name:   "parse_fuzzer",
			Source: filepath.Join(root, "fuzz", "parse_fuzzer.c"),
			Corpus: filepath.Join(root, "fuzz", "corpus"),
			Flag:   "-fsanitize=fuzzer",
		},
		Tests: TestSuite{
			Dir:          filepath.Join(root, "test", "laye"),
			Extension:    ".laye",
			NoExecMarker: ".noexec",
		},
		Fchk: DefaultFchk(root, testOut),
	}
}

// DefaultFchk returns the cmake/ctest commands for a suite configured into outDir.
func DefaultFchk(root, outDir string) Fchk {
	return Fchk{
		OutDir:    outDir,
		Configure: []string{"cmake", "-S", root, "-B", outDir, "-DBUILD_TESTING=ON"},
		Build:     []string{"cmake", "--build", outDir},
		Run:       []string{"ctest", "--test-dir", outDir, "--progress"},
	}
}
