package pygwas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Error reports a failed PyGWAS invocation.
type Error struct {
	Subcommand string
	Stderr     string
	Err        error
}

func (err *Error) Error() string {
	msg := strings.TrimSpace(err.Stderr)
	if msg == "" {
		return fmt.Sprintf("pygwas %s: %v", err.Subcommand, err.Err)
	}
	return fmt.Sprintf("pygwas %s: %v: %s", err.Subcommand, err.Err, msg)
}

func (err *Error) Unwrap() error { return err.Err }

type runFunc func(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error)

// Command implements Library by running the PyGWAS bridge executable.  Each
// call runs one subcommand, passes request bodies as JSON on stdin and reads
// the JSON result from stdout.
type Command struct {
	name string
	args []string
	run  runFunc
}

// NewCommand returns a Command that runs name with the leading arguments
// args, e.g. NewCommand("python3", "-m", "pygwas.bridge").
func NewCommand(name string, args ...string) *Command {
	return &Command{name, args, execRun}
}

// LDForSNP implements Library.
func (c *Command) LDForSNP(ctx context.Context, file, chromosome string, position uint64) (*SNPLD, error) {
	var ld SNPLD
	err := c.call(ctx, &ld, nil, "ld", "snp",
		"--file", file,
		"--chr", chromosome,
		"--position", strconv.FormatUint(position, 10))
	if err != nil {
		return nil, err
	}
	return &ld, nil
}

// LDForRegion implements Library.
func (c *Command) LDForRegion(ctx context.Context, file, chromosome string, start, end uint64) (*RegionLD, error) {
	var ld RegionLD
	err := c.call(ctx, &ld, nil, "ld", "region",
		"--file", file,
		"--chr", chromosome,
		"--start", strconv.FormatUint(start, 10),
		"--end", strconv.FormatUint(end, 10))
	if err != nil {
		return nil, err
	}
	return &ld, nil
}

// LoadGenotype implements Library.
func (c *Command) LoadGenotype(ctx context.Context, file string) (*Genotype, error) {
	var genotype Genotype
	if err := c.call(ctx, &genotype, nil, "genotype", "--file", file); err != nil {
		return nil, err
	}
	genotype.Path = file
	return &genotype, nil
}

// CalculateLD implements Library.
func (c *Command) CalculateLD(ctx context.Context, genotype *Genotype, accessions []Accession, chromosome string, position uint64, numSNPs int) (*ExactLD, error) {
	if numSNPs <= 0 {
		return nil, fmt.Errorf("invalid number of SNPs %d", numSNPs)
	}
	if accessions == nil {
		accessions = []Accession{}
	}
	body, err := json.Marshal(accessions)
	if err != nil {
		return nil, fmt.Errorf("encoding accessions: %v", err)
	}

	var ld ExactLD
	err = c.call(ctx, &ld, bytes.NewReader(body), "ld", "exact",
		"--file", genotype.Path,
		"--chr", chromosome,
		"--position", strconv.FormatUint(position, 10),
		"--num-snps", strconv.Itoa(numSNPs))
	if err != nil {
		return nil, err
	}
	return &ld, nil
}

// Plot implements Library.
func (c *Command) Plot(ctx context.Context, file, output string, options PlotOptions) error {
	if err := validate.Struct(options); err != nil {
		return fmt.Errorf("plot options: %v", err)
	}
	args := append([]string{"plot", "--output", output}, options.args()...)
	args = append(args, file)
	_, err := c.exec(ctx, nil, args...)
	return err
}

// Statistics implements Library.
func (c *Command) Statistics(ctx context.Context, values []PhenotypeValue) (Statistics, error) {
	if len(values) == 0 {
		return nil, errors.New("no phenotype values")
	}
	for i := range values {
		if err := validate.Struct(values[i]); err != nil {
			return nil, fmt.Errorf("phenotype value %d: %v", i, err)
		}
	}
	body, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encoding phenotype values: %v", err)
	}

	var stats Statistics
	if err := c.call(ctx, &stats, bytes.NewReader(body), "stats"); err != nil {
		return nil, err
	}
	return stats, nil
}

// call runs a subcommand and decodes its output into v.
func (c *Command) call(ctx context.Context, v interface{}, stdin io.Reader, args ...string) error {
	out, err := c.exec(ctx, stdin, args...)
	if err != nil {
		return err
	}
	if err := decode(out, v); err != nil {
		return fmt.Errorf("decoding pygwas %s output: %v", args[0], err)
	}
	return nil
}

func (c *Command) exec(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error) {
	argv := append(append([]string(nil), c.args...), args...)
	out, err := c.run(ctx, c.name, argv, stdin)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Subcommand = args[0]
			return nil, e
		}
		return nil, &Error{Subcommand: args[0], Err: err}
	}
	return out, nil
}

func execRun(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &Error{Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}
