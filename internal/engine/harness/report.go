package harness

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/ui/output"
	"go.trai.ch/kiln/internal/ui/style"
)

// WriteReport prints the suite summary and the failing cases in discovery order.
func WriteReport(w io.Writer, report *domain.SuiteReport) error {
	out := output.New(w)
	green := func(s string) string { return colored(out, s, style.Hex(style.Green)) }
	red := func(s string) string { return colored(out, s, style.Hex(style.Red)) }

	total := report.Total()
	if total == 0 {
		_, err := fmt.Fprintln(w, "\nNo execution tests found (0 tests).")
		return err
	}

	failed := report.Failed()
	if len(failed) == 0 {
		_, err := fmt.Fprintf(w, "\n%s out of %d.\n", green("100% of tests passed"), total)
		return err
	}

	if _, err := fmt.Fprintf(w, "\n%d%% of tests passed, %s out of %d.\n",
		report.Percent(), red(fmt.Sprintf("%d tests failed", len(failed))), total); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, "\nThe following tests FAILED:"); err != nil {
		return err
	}
	for _, record := range failed {
		if _, err := fmt.Fprintf(w, "\t%s\n", red(record.Case.Path)); err != nil {
			return err
		}
	}
	return nil
}

func colored(out *termenv.Output, s, hex string) string {
	return out.String(s).Foreground(out.Color(hex)).String()
}
