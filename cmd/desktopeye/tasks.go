package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/Mulet-J/desktopeye/bootstrap"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/ocr"
)

var (
	jsonOutput bool
	backend    string

	ocrLanguages  string
	ocrPreprocess bool

	translateFrom string
	translateTo   string

	speakVoice  string
	speakOutput string
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <image>",
	Short: "Read the text in an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		img, err := ocr.Decode(f)
		if err != nil {
			return err
		}

		var langs []string
		if ocrLanguages != "" {
			langs = strings.Split(ocrLanguages, "+")
		}
		return runTask(cmd, "ocr", func(ctx context.Context, app *bootstrap.App) error {
			res, err := app.OCR.ExtractText(ctx, img, langs, ocrPreprocess)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		})
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Detect the language of text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return runTask(cmd, "classify", func(ctx context.Context, app *bootstrap.App) error {
			res, err := app.Classify.ClassifyText(ctx, text)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.2f\t(%s)\n", res.Language, res.Confidence, res.Backend)
			return nil
		})
	},
}

var translateCmd = &cobra.Command{
	Use:   "translate <text>",
	Short: "Translate text, detecting the source language unless --from is given",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		target, err := language.Parse(translateTo)
		if err != nil {
			return errors.InvalidInput("to", "unknown language "+translateTo)
		}
		source := language.Und
		if translateFrom != "" {
			if source, err = language.Parse(translateFrom); err != nil {
				return errors.InvalidInput("from", "unknown language "+translateFrom)
			}
		}

		return runTask(cmd, "translate", func(ctx context.Context, app *bootstrap.App) error {
			if source == language.Und {
				if res, err := app.Classify.ClassifyText(ctx, text); err == nil {
					source = res.Language
				}
			}
			out, err := app.Translate.Translate(ctx, text, source, target)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"text": text, "translation": out, "source": source, "target": target,
					"backend": app.Translate.KindName(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Synthesize speech to a WAV file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return runTask(cmd, "tts", func(ctx context.Context, app *bootstrap.App) error {
			audio, err := app.TTS.Synthesize(ctx, text, speakVoice)
			if err != nil {
				return err
			}
			if err := os.WriteFile(speakOutput, audio.Data, 0o644); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), audio)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, voice %s, %s)\n", speakOutput, audio.Duration, audio.Voice, audio.Backend)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{ocrCmd, classifyCmd, translateCmd, speakCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "print the full result as JSON")
		c.Flags().StringVarP(&backend, "backend", "b", "", "backend kind to use instead of the configured one")
	}

	ocrCmd.Flags().StringVarP(&ocrLanguages, "lang", "l", "", "tesseract languages joined with +, e.g. eng+deu")
	ocrCmd.Flags().BoolVar(&ocrPreprocess, "preprocess", false, "grayscale, upscale and binarise before recognition")

	translateCmd.Flags().StringVar(&translateFrom, "from", "", "source language (default: detect)")
	translateCmd.Flags().StringVar(&translateTo, "to", "", "target language")
	_ = translateCmd.MarkFlagRequired("to")

	speakCmd.Flags().StringVar(&speakVoice, "voice", "", "voice (default: tts.voice)")
	speakCmd.Flags().StringVarP(&speakOutput, "output", "o", "speech.wav", "output WAV file")
}

// runTask builds a one-shot app, switches capability to --backend when
// given, and runs fn inside the app lifecycle.
func runTask(cmd *cobra.Command, capability string, fn func(ctx context.Context, app *bootstrap.App) error) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}
	return app.RunTask(cmd.Context(), func(ctx context.Context) error {
		if backend != "" {
			if err := app.Capability(capability).SwitchToName(ctx, backend, true); err != nil {
				return err
			}
		}
		return fn(ctx, app)
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
