// Command iconexport writes the application icon as PNG and ICO files for
// packaging.
package main

import (
	"errors"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"

	"sunstock-dashboard/internal/ui/icon"
)

type options struct {
	PNG string `long:"png" description:"output PNG path"`
	ICO string `long:"ico" description:"output ICO path"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if opts.PNG == "" && opts.ICO == "" {
		fmt.Fprintln(os.Stderr, "usage: iconexport --png <out.png> --ico <out.ico>")
		os.Exit(2)
	}
	if opts.PNG != "" {
		data, err := icon.PNG()
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode png: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(opts.PNG, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write png: %v\n", err)
			os.Exit(1)
		}
	}
	if opts.ICO != "" {
		data, err := icon.ICO()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build ico: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(opts.ICO, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write ico: %v\n", err)
			os.Exit(1)
		}
	}
}
