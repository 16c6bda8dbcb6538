package pygwas

import (
	"context"
	"errors"
	"io"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invocation struct {
	name  string
	args  []string
	stdin string
}

// fakeRun records invocations and replies with output.
func fakeRun(calls *[]invocation, output string, err error) runFunc {
	return func(_ context.Context, name string, args []string, stdin io.Reader) ([]byte, error) {
		call := invocation{name: name, args: args}
		if stdin != nil {
			b, _ := ioutil.ReadAll(stdin)
			call.stdin = string(b)
		}
		*calls = append(*calls, call)
		if err != nil {
			return nil, err
		}
		return []byte(output), nil
	}
}

func newTestCommand(calls *[]invocation, output string, err error) *Command {
	c := NewCommand("python3", "-m", "pygwas.bridge")
	c.run = fakeRun(calls, output, err)
	return c
}

func TestCommand_LDForSNP(t *testing.T) {
	var calls []invocation
	c := newTestCommand(&calls, `{"chr": "chr2", "position": 500, "snps": [400, 500], "r2": [NaN, 1.0]}`, nil)

	ld, err := c.LDForSNP(context.Background(), "/data/study/12.hdf5", "chr2", 500)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "python3", calls[0].name)
	assert.Equal(t, []string{"-m", "pygwas.bridge", "ld", "snp",
		"--file", "/data/study/12.hdf5", "--chr", "chr2", "--position", "500"}, calls[0].args)
	assert.Equal(t, []uint64{400, 500}, ld.Positions)
	assert.Len(t, ld.R2, 2)
}

func TestCommand_LDForRegion(t *testing.T) {
	var calls []invocation
	c := newTestCommand(&calls, `{"chr": "chr2", "start": 1, "end": 9, "snps": [], "r2": []}`, nil)

	_, err := c.LDForRegion(context.Background(), "f.hdf5", "chr2", 1, 9)
	require.NoError(t, err)
	assert.Equal(t, []string{"-m", "pygwas.bridge", "ld", "region",
		"--file", "f.hdf5", "--chr", "chr2", "--start", "1", "--end", "9"}, calls[0].args)
}

func TestCommand_CalculateLD(t *testing.T) {
	var calls []invocation
	c := newTestCommand(&calls, `{"chr": "chr1", "position": 7, "accessions": ["1", "2"], "snps": [7], "r2": [[1.0]]}`, nil)

	genotype := &Genotype{Path: "/data/genotypes/3/all_chromosomes_binary.hdf5"}
	ld, err := c.CalculateLD(context.Background(), genotype, []Accession{"1", "2"}, "chr1", 7, DefaultNumSNPs)
	require.NoError(t, err)
	assert.Equal(t, []string{"-m", "pygwas.bridge", "ld", "exact",
		"--file", genotype.Path, "--chr", "chr1", "--position", "7", "--num-snps", "250"}, calls[0].args)
	assert.Equal(t, `["1","2"]`, calls[0].stdin)
	assert.Equal(t, []Accession{"1", "2"}, ld.Accessions)

	_, err = c.CalculateLD(context.Background(), genotype, nil, "chr1", 7, 0)
	assert.Error(t, err)
}

func TestCommand_CalculateLDWithoutAccessions(t *testing.T) {
	var calls []invocation
	c := newTestCommand(&calls, `{"chr": "chr1", "position": 7, "snps": [], "r2": []}`, nil)

	_, err := c.CalculateLD(context.Background(), &Genotype{Path: "g.hdf5"}, nil, "chr1", 7, 10)
	require.NoError(t, err)
	assert.Equal(t, `[]`, calls[0].stdin)
}

func TestCommand_LoadGenotype(t *testing.T) {
	var calls []invocation
	c := newTestCommand(&calls, `{"accessions": [6909, "9381"], "chromosomes": ["chr1"], "num_snps": 214051}`, nil)

	genotype, err := c.LoadGenotype(context.Background(), "g.hdf5")
	require.NoError(t, err)
	assert.Equal(t, "g.hdf5", genotype.Path)
	assert.Equal(t, []Accession{"6909", "9381"}, genotype.Accessions)
	assert.Equal(t, uint64(214051), genotype.NumSNPs)
}

func TestCommand_Plot(t *testing.T) {
	var calls []invocation
	c := newTestCommand(&calls, "", nil)

	err := c.Plot(context.Background(), "in.hdf5", "out.pdf", PlotOptions{Chromosome: "chr3", MinorAlleleCount: 20, Format: PDF})
	require.NoError(t, err)
	assert.Equal(t, []string{"-m", "pygwas.bridge", "plot", "--output", "out.pdf",
		"--macs", "20", "--format", "pdf", "--chr", "chr3", "in.hdf5"}, calls[0].args)

	err = c.Plot(context.Background(), "in.hdf5", "out.svg", PlotOptions{Format: "svg"})
	assert.Error(t, err)
	assert.Len(t, calls, 1, "invalid options must not reach pygwas")
}

func TestCommand_Statistics(t *testing.T) {
	var calls []invocation
	c := newTestCommand(&calls, `{"none": {"shapiro": 0.12, "pseudo_heritability": NaN}}`, nil)

	stats, err := c.Statistics(context.Background(), []PhenotypeValue{{"1", 0.5}, {"2", 1.5}})
	require.NoError(t, err)
	assert.Equal(t, []string{"-m", "pygwas.bridge", "stats"}, calls[0].args)
	assert.Equal(t, `[["1",0.5],["2",1.5]]`, calls[0].stdin)
	assert.Equal(t, Float(0.12), stats["none"]["shapiro"])

	_, err = c.Statistics(context.Background(), nil)
	assert.Error(t, err)
	_, err = c.Statistics(context.Background(), []PhenotypeValue{{"", 1}})
	assert.Error(t, err)
	assert.Len(t, calls, 1)
}

func TestCommand_Failure(t *testing.T) {
	var calls []invocation
	cause := errors.New("exit status 1")
	c := newTestCommand(&calls, "", &Error{Stderr: "IOError: no such file\n", Err: cause})

	_, err := c.LDForSNP(context.Background(), "missing.hdf5", "chr1", 1)
	require.Error(t, err)

	var pyErr *Error
	require.True(t, errors.As(err, &pyErr))
	assert.Equal(t, "ld", pyErr.Subcommand)
	assert.Equal(t, "pygwas ld: exit status 1: IOError: no such file", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestCommand_MalformedOutput(t *testing.T) {
	var calls []invocation
	c := newTestCommand(&calls, `not json`, nil)

	_, err := c.LoadGenotype(context.Background(), "g.hdf5")
	assert.Error(t, err)
}
