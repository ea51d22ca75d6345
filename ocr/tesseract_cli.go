package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/process"
	"github.com/Mulet-J/desktopeye/provider"
)

// CommandRunner runs an external engine. *process.Runner implements it.
type CommandRunner interface {
	Run(ctx context.Context, cmd process.Command) (*process.Result, error)
}

// TesseractCommand pipes a PNG into the tesseract binary and parses its TSV
// output. Loading checks the binary answers and that every configured
// language is installed.
type TesseractCommand struct {
	cfg    config.OCRConfig
	runner CommandRunner
	gate   provider.LoadGate

	mu        sync.Mutex
	version   string
	installed map[string]bool
}

// NewTesseractCommand creates a CLI backend that runs through runner.
func NewTesseractCommand(cfg config.OCRConfig, runner CommandRunner) *TesseractCommand {
	return &TesseractCommand{cfg: cfg, runner: runner}
}

// Version returns the engine version after a successful load.
func (t *TesseractCommand) Version() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

func (t *TesseractCommand) LoadRequired(ctx context.Context, modelHint string) (bool, error) {
	return t.gate.Load(ctx, func(ctx context.Context) (bool, error) {
		res, err := t.runner.Run(ctx, t.command(nil, "--version"))
		if err != nil {
			return false, err
		}
		version := parseVersion(res.Stdout, res.Stderr)

		res, err = t.runner.Run(ctx, t.command(nil, "--list-langs"))
		if err != nil {
			return false, err
		}
		installed := parseLanguages(res.Stdout)

		want := t.cfg.Languages
		if modelHint != "" {
			want = strings.Split(modelHint, "+")
		}
		for _, l := range want {
			if !installed[l] {
				return false, fmt.Errorf("tesseract language %q is not installed", l)
			}
		}

		t.mu.Lock()
		t.version = version
		t.installed = installed
		t.mu.Unlock()
		return true, nil
	})
}

func (t *TesseractCommand) ExtractText(ctx context.Context, img image.Image, opts Options) (*Result, error) {
	if ok, err := t.LoadRequired(ctx, ""); !ok {
		return nil, loadError(TesseractCLI, err)
	}

	langs := opts.Languages
	if len(langs) == 0 {
		langs = t.cfg.Languages
	}
	t.mu.Lock()
	for _, l := range langs {
		if !t.installed[l] {
			t.mu.Unlock()
			return nil, errors.InvalidInput("languages", fmt.Sprintf("tesseract language %q is not installed", l))
		}
	}
	t.mu.Unlock()

	if opts.Preprocess {
		img = Preprocess(img)
	}
	data, err := encodePNG(img)
	if err != nil {
		return nil, errors.InvalidInput("image", err.Error())
	}

	args := []string{"stdin", "stdout", "-l", strings.Join(langs, "+")}
	if t.cfg.PageSegMode > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PageSegMode))
	}
	args = append(args, "tsv")

	res, err := t.runner.Run(ctx, t.command(bytes.NewReader(data), args...))
	if err != nil {
		return nil, err
	}
	out := parseTSV(res.Stdout)
	out.Backend = TesseractCLI.String()
	return out, nil
}

func (t *TesseractCommand) command(stdin *bytes.Reader, args ...string) process.Command {
	if t.cfg.TessdataPrefix != "" {
		args = append([]string{"--tessdata-dir", t.cfg.TessdataPrefix}, args...)
	}
	cmd := process.Command{
		Binary:  t.cfg.Binary,
		Args:    args,
		Timeout: t.cfg.Timeout,
	}
	if stdin != nil {
		cmd.Stdin = stdin
	}
	return cmd
}

// parseVersion reads "tesseract 5.3.0" from either stream; old releases
// print it on stderr.
func parseVersion(streams ...[]byte) string {
	for _, s := range streams {
		line, _, _ := strings.Cut(strings.TrimSpace(string(s)), "\n")
		if strings.HasPrefix(line, "tesseract") {
			return strings.TrimSpace(strings.TrimPrefix(line, "tesseract"))
		}
	}
	return ""
}

// parseLanguages reads --list-langs output, skipping the header line.
func parseLanguages(out []byte) map[string]bool {
	langs := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "List of") {
			continue
		}
		langs[line] = true
	}
	return langs
}

// parseTSV converts tesseract's TSV output into a Result. Columns are
// level, page, block, par, line, word, left, top, width, height, conf,
// text; level 5 rows are words.
func parseTSV(out []byte) *Result {
	res := &Result{Regions: []Region{}}
	var text strings.Builder
	lastLine := ""

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		cols := strings.Split(sc.Text(), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		word := strings.TrimSpace(cols[11])
		conf, err := strconv.ParseFloat(cols[10], 64)
		if word == "" || err != nil || conf < 0 {
			continue
		}
		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])

		lineKey := cols[1] + "." + cols[2] + "." + cols[3] + "." + cols[4]
		switch {
		case text.Len() == 0:
		case lineKey != lastLine:
			text.WriteByte('\n')
		default:
			text.WriteByte(' ')
		}
		lastLine = lineKey
		text.WriteString(word)

		res.Regions = append(res.Regions, Region{
			Text:       word,
			Confidence: conf / 100.0,
			Bounds:     Bounds{X1: left, Y1: top, X2: left + width, Y2: top + height},
		})
	}
	res.Text = text.String()
	res.Confidence = meanConfidence(res.Regions)
	return res
}
