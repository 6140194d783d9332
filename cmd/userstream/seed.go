package main

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/likearthian/rowstream"
	"github.com/spf13/cobra"
)

var (
	SeedCSV       string
	SeedNoHeader  bool
	SeedWriteFile string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load users from a CSV file into an empty user_data table",
	Long: `Load users from a CSV file into user_data. Nothing is inserted when the
table already has rows. Without --csv the built-in sample users are loaded;
when the --csv file does not exist the sample is written there first.

Examples:
  userstream seed --csv user_data.csv
  userstream seed --write-sample user_data.csv`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&SeedCSV, "csv", "", "CSV file to load (default: built-in sample)")
	seedCmd.Flags().BoolVar(&SeedNoHeader, "no-header", false, "The CSV file has no header line")
	seedCmd.Flags().StringVar(&SeedWriteFile, "write-sample", "", "Write the built-in sample CSV to this file and exit")
}

func runSeed(cmd *cobra.Command, args []string) error {
	if SeedWriteFile != "" {
		f, err := os.Create(SeedWriteFile)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := rowstream.WriteSampleUsersCSV(f); err != nil {
			return err
		}

		log.Infof("sample written to %s", SeedWriteFile)
		return nil
	}

	ctx := cmd.Context()
	db, repo, err := openUserRepository(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.CreateTable(ctx); err != nil {
		return err
	}

	var input io.Reader
	withHeader := !SeedNoHeader
	if SeedCSV == "" {
		var buf bytes.Buffer
		if err := rowstream.WriteSampleUsersCSV(&buf); err != nil {
			return err
		}
		input = &buf
		withHeader = true
	} else {
		f, err := openOrWriteSample(SeedCSV)
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
		if f.wroteSample {
			withHeader = true
		}
	}

	n, err := rowstream.LoadUsersCSV(ctx, repo, input, withHeader)
	if errors.Is(err, rowstream.ErrTableNotEmpty) {
		log.Info("data already exists in the table, skipping insertion")
		return nil
	}
	if err != nil {
		return err
	}

	if n == 0 {
		log.Warn("CSV has no user rows, nothing inserted")
		return nil
	}

	log.WithField("rows", n).Info("users inserted")
	return nil
}

type csvFile struct {
	*os.File
	wroteSample bool
}

// openOrWriteSample opens path, creating it from the sample users first when
// it does not exist.
func openOrWriteSample(path string) (*csvFile, error) {
	f, err := os.Open(path)
	if err == nil {
		return &csvFile{File: f}, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	f, err = os.Create(path)
	if err != nil {
		return nil, err
	}

	if err := rowstream.WriteSampleUsersCSV(f); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	log.Infof("%s not found, sample written there", path)
	return &csvFile{File: f, wroteSample: true}, nil
}
