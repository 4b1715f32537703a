package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/lumokids/storytime-backend/internal/app"
)

// Reconciliation sits in its own command so repairs stay auditable: the
// default run prints the planned advances and diagnostics without touching a
// row; -apply performs the guarded writes.
func main() {
	var apply bool
	flag.BoolVar(&apply, "apply", false, "perform the planned status advances (default: diagnose only)")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	report, err := application.Services.Visibility.Reconcile(ctx)
	if err != nil {
		fmt.Printf("reconcile: %v\n", err)
		os.Exit(1)
	}

	encoded, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(encoded))

	if !apply {
		fmt.Printf("dry run: %d planned action(s) not applied; rerun with -apply\n", len(report.Actions))
		return
	}

	result, err := application.Services.Visibility.Apply(ctx, report)
	if err != nil {
		fmt.Printf("apply: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("applied %d action(s), skipped %d\n", result.Applied, result.Skipped)
}
