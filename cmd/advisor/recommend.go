package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"advisor-backend/internal/catalog"
	"advisor-backend/internal/engine"
	"advisor-backend/internal/extract"
	"advisor-backend/internal/recommendations"
)

type recommendOptions struct {
	file        string
	batch       string
	platform    string
	business    string
	features    []string
	have        []string
	budget      float64
	maxDays     int
	portability string
	access      string
	interactive bool
	asJSON      bool
	save        bool
	user        string
}

func newRecommendCmd(c *cli) *cobra.Command {
	var opts recommendOptions
	cmd := &cobra.Command{
		Use:   "recommend [text]",
		Short: "Recommend platform, features, tech stack, cost and timeline",
		Long: `Recommend a project setup from requirement text given as arguments, from a
document (--file: PDF, DOCX, TXT or Markdown) or from a batch file with one
requirement per line (--batch, one JSON outcome per output line).

Without arguments, or with "-", the text is read from piped stdin.

When the text is too vague and no answers were given as flags, the
clarification questions are printed. With --interactive, or when stdin is a
terminal, they are asked on stdin and the answers are used for a second,
final run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := recommendations.InfoInput{
				Platform:         opts.platform,
				BusinessType:     opts.business,
				Features:         opts.features,
				ExistingFeatures: opts.have,
				Portability:      opts.portability,
				Access:           opts.access,
			}
			if cmd.Flags().Changed("budget") {
				info.Budget = &opts.budget
			}
			if cmd.Flags().Changed("max-days") {
				info.MaxDays = &opts.maxDays
			}
			return c.recommend(cmd.Context(), opts, args, info)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.file, "file", "", "requirement document (pdf, docx, txt, md)")
	f.StringVar(&opts.batch, "batch", "", "file with one requirement per line")
	f.StringVar(&opts.platform, "platform", "", "target platform (mobile, website, desktop)")
	f.StringVar(&opts.business, "business", "", "business type (retail, restaurant, ...)")
	f.StringArrayVar(&opts.features, "feature", nil, "feature the client asked for (repeatable)")
	f.StringArrayVar(&opts.have, "have", nil, "feature the client already has (repeatable)")
	f.Float64Var(&opts.budget, "budget", 0, "budget ceiling")
	f.IntVar(&opts.maxDays, "max-days", 0, "timeline ceiling in days")
	f.StringVar(&opts.portability, "portability", "", "portability when no platform is given (high, medium, low)")
	f.StringVar(&opts.access, "access", "", "access when no platform is given (online, offline)")
	f.BoolVar(&opts.interactive, "interactive", false, "ask clarification questions on stdin")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a report")
	f.BoolVar(&opts.save, "save", false, "persist the result to DATABASE_URL")
	f.StringVar(&opts.user, "user", "cli", "owner recorded with --save")
	cmd.MarkFlagsMutuallyExclusive("file", "batch")
	cmd.MarkFlagsMutuallyExclusive("interactive", "batch")
	return cmd
}

func (c *cli) recommend(ctx context.Context, opts recommendOptions, args []string, input recommendations.InfoInput) error {
	eng, err := c.engine()
	if err != nil {
		return err
	}
	info, err := recommendations.ResolveInfo(eng.Catalog(), input)
	if err != nil {
		return err
	}
	repo, closeRepo, err := c.repo(ctx, opts.save)
	if err != nil {
		return err
	}
	defer closeRepo()
	svc := &recommendations.Service{Engine: eng, Repo: repo}

	if opts.batch != "" {
		return c.runBatch(ctx, svc, opts, info)
	}

	text, source, err := c.requirementText(ctx, opts.file, args)
	if err != nil {
		return err
	}
	rec, err := svc.Recommend(ctx, opts.user, text, info)
	if err != nil {
		return err
	}
	if rec.State == engine.StateClarifying && (opts.interactive || isTerminal(c.in)) {
		answers, err := c.askClarification(eng.Catalog(), rec.Outcome.Clarification)
		if err != nil {
			return err
		}
		if rec, err = svc.Answer(ctx, opts.user, rec.ID, answers); err != nil {
			return err
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	if source != "" {
		fmt.Fprintf(c.out, "Source: %s\n\n", source)
	}
	printOutcome(c.out, rec.Outcome)
	if opts.save {
		fmt.Fprintf(c.out, "\nSaved as %s (%s)\n", rec.ID, rec.State)
	}
	return nil
}

// requirementText reads text from a document or joins the positional arguments.
func (c *cli) requirementText(ctx context.Context, file string, args []string) (string, string, error) {
	if file == "" {
		text := strings.Join(args, " ")
		if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
			piped, err := c.pipedText()
			if err != nil {
				return "", "", err
			}
			text = piped
		}
		if strings.TrimSpace(text) == "" {
			return "", "", fmt.Errorf("requirement text is required (pass it as arguments, pipe it on stdin or use --file)")
		}
		return text, "", nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", file, err)
	}
	text, err := extract.ExtractTextFromBytes(ctx, data, http.DetectContentType(data), filepath.Base(file))
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", file, err)
	}
	return text, file, nil
}

const maxPipedBytes = 1 << 20

// pipedText reads the requirement from stdin. A terminal is never read, so a
// bare `advisor recommend` fails instead of waiting for input.
func (c *cli) pipedText() (string, error) {
	if c.in == nil || isTerminal(c.in) {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(c.in, maxPipedBytes))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type batchLine struct {
	Line    int             `json:"line"`
	Text    string          `json:"text"`
	ID      string          `json:"id,omitempty"`
	Outcome *engine.Outcome `json:"outcome,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// runBatch prints one JSON object per non-empty input line. Lines starting
// with # are skipped. A failing line is reported and does not stop the run.
func (c *cli) runBatch(ctx context.Context, svc *recommendations.Service, opts recommendOptions, info *engine.AdditionalInfo) error {
	f, err := os.Open(opts.batch)
	if err != nil {
		return fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(c.out)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		line := batchLine{Line: n, Text: text}
		rec, err := svc.Recommend(ctx, opts.user, text, info)
		if err != nil {
			line.Error = err.Error()
		} else {
			line.Outcome = &rec.Outcome
			if opts.save {
				line.ID = rec.ID
			}
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// askClarification prints the questions and reads one answer per missing
// dimension. Unrecognised answers are reported and left to the fallbacks.
func (c *cli) askClarification(cat *catalog.Catalog, req *engine.ClarificationRequest) (engine.AdditionalInfo, error) {
	var info engine.AdditionalInfo
	if req == nil {
		return info, nil
	}
	fmt.Fprintln(c.errOut, "A few questions before recommending:")
	for i, q := range req.Questions {
		fmt.Fprintf(c.errOut, "  %d. %s\n", i+1, q)
	}
	fmt.Fprintln(c.errOut)

	reader := bufio.NewReader(c.in)
	an := req.Analysis

	if an.BusinessType == catalog.BusinessUnknown || len(an.AmbiguousTerms) > 0 {
		answer, err := c.prompt(reader, "Business type")
		if err != nil {
			return info, err
		}
		if answer != "" {
			if bt, ok := cat.ResolveBusinessType(answer); ok {
				info.BusinessType = bt
			} else {
				fmt.Fprintf(c.errOut, "unknown business type %q, using the detected one\n", answer)
			}
		}
	}
	if an.PlatformSignal == catalog.PlatformUnknown {
		answer, err := c.prompt(reader, "Platform")
		if err != nil {
			return info, err
		}
		if answer != "" {
			if p, ok := cat.ResolvePlatform(answer); ok {
				info.Platform = p
			} else {
				fmt.Fprintf(c.errOut, "unknown platform %q, using the default\n", answer)
			}
		}
		if info.Platform == "" {
			if err := c.askRequirements(reader, &info); err != nil {
				return info, err
			}
		}
	}
	if len(an.DetectedFeatures) == 0 {
		answer, err := c.prompt(reader, "Key features (comma separated)")
		if err != nil {
			return info, err
		}
		for _, name := range strings.Split(answer, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if id, ok := cat.ResolveFeature(name); ok {
				info.ExplicitFeatures = append(info.ExplicitFeatures, id)
			} else {
				fmt.Fprintf(c.errOut, "unknown feature %q, skipped\n", name)
			}
		}
	}
	return info, nil
}

// askRequirements asks the two questions that pick a platform when the
// client could not name one.
func (c *cli) askRequirements(reader *bufio.Reader, info *engine.AdditionalInfo) error {
	answer, err := c.prompt(reader, "Portability (high/medium/low)")
	if err != nil {
		return err
	}
	if answer != "" {
		if p, perr := catalog.ParsePortability(answer); perr == nil {
			info.Portability = p
		} else {
			fmt.Fprintf(c.errOut, "%v, skipped\n", perr)
		}
	}
	answer, err = c.prompt(reader, "Access (online/offline)")
	if err != nil {
		return err
	}
	if answer != "" {
		if a, aerr := catalog.ParseAccess(answer); aerr == nil {
			info.Access = a
		} else {
			fmt.Fprintf(c.errOut, "%v, skipped\n", aerr)
		}
	}
	return nil
}

func (c *cli) prompt(r *bufio.Reader, label string) (string, error) {
	fmt.Fprintf(c.errOut, "%s: ", label)
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func printOutcome(w io.Writer, out engine.Outcome) {
	if out.Clarification != nil {
		fmt.Fprintln(w, "The requirements are too vague to recommend yet. Please answer:")
		for i, q := range out.Clarification.Questions {
			fmt.Fprintf(w, "  %d. %s\n", i+1, q)
		}
		fmt.Fprintln(w, "\nRe-run with --platform/--business/--feature or --interactive.")
		return
	}
	rec := out.Recommendation
	if rec == nil {
		return
	}
	fmt.Fprintf(w, "Platform:       %s (confidence %.2f)\n", rec.Platform, rec.PlatformConfidence)
	fmt.Fprintf(w, "Business type:  %s\n", rec.BusinessType)
	if rec.ConfidenceFlag == engine.ConfidenceFallback {
		fmt.Fprintf(w, "Confidence:     fallback (%s)\n", strings.Join(rec.FallbackReasons, ", "))
	}

	fmt.Fprintln(w, "\nFeatures:")
	for _, f := range rec.Features {
		fmt.Fprintf(w, "  - %-28s %-6s %s\n", f.Name, f.Priority, f.Description)
	}

	fmt.Fprintf(w, "\nTech stack:     %s\n", rec.TechStack.Name)
	if rec.TechStack.Description != "" {
		fmt.Fprintf(w, "                %s\n", rec.TechStack.Description)
	}
	if len(rec.TechStack.Components) > 0 {
		fmt.Fprintf(w, "                %s\n", strings.Join(rec.TechStack.Components, ", "))
	}

	fmt.Fprintf(w, "\nCost:           %.2f - %.2f (mid %.2f)\n", rec.Cost.Low, rec.Cost.High, rec.Cost.Mid)
	fmt.Fprintf(w, "Timeline:       %d days\n", rec.Timeline.TotalDays)
	for _, p := range rec.Timeline.Phases {
		fmt.Fprintf(w, "  - %-14s %d days\n", p.Name, p.Days)
	}
	for _, note := range rec.Constraints.Notes {
		fmt.Fprintf(w, "Note: %s\n", note)
	}
}
