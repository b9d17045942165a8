package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harborline/hscode/internal/engine"
)

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <description>",
		Short: "Classify a product description interactively",
		Long: `Classify a free-text product description into a commodity code.

When the candidates cannot be separated on the first pass, the command asks
up to three rounds of clarifying questions. Answer with an option number,
free text, or "skip" to accept the best current suggestion.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClassify,
	}
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	description := strings.Join(args, " ")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	eng, err := buildEngine(store)
	if err != nil {
		return err
	}

	resp, err := eng.Classify(ctx, description)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	for resp.Type == engine.ResponseQuestions {
		answers, skip, readErr := collectAnswers(reader, resp.Questions)
		if readErr != nil {
			return readErr
		}

		if skip {
			resp, err = eng.Skip(ctx, resp.ConversationID)
		} else {
			resp, err = eng.SubmitAnswers(ctx, resp.ConversationID, answers)
		}
		if err != nil {
			return err
		}
	}

	printResult(resp.Result)
	return nil
}

// collectAnswers prompts for each open question. Returning skip=true means
// the user wants the best available answer without more rounds.
func collectAnswers(reader *bufio.Reader, questions []engine.QuestionPrompt) (map[string]string, bool, error) {
	answers := make(map[string]string, len(questions))

	for _, q := range questions {
		fmt.Printf("\n%s\n", q.Prompt)
		for i, opt := range q.Options {
			fmt.Printf("  %d) %s\n", i+1, opt.Label)
		}
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, false, fmt.Errorf("failed to read answer: %w", err)
		}
		line = strings.TrimSpace(line)

		if strings.EqualFold(line, "skip") {
			return nil, true, nil
		}

		if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(q.Options) {
			answers[q.ID] = q.Options[n-1].Value
			continue
		}
		// Anything else is a free-text answer via the "other" escape.
		answers[q.ID] = line
	}

	return answers, false, nil
}

func printResult(result *engine.Result) {
	if result == nil {
		return
	}

	fmt.Printf("\nCode:        %s\n", result.Code)
	fmt.Printf("Description: %s\n", result.Description)
	fmt.Printf("Confidence:  %.1f\n", result.Confidence)
	if result.Reasoning != "" {
		fmt.Printf("Reasoning:   %s\n", result.Reasoning)
	}
	if len(result.Alternatives) > 0 {
		fmt.Println("\nAlternatives:")
		for _, alt := range result.Alternatives {
			fmt.Printf("  %-13s %s (%.1f)\n", alt.Code, alt.Description, alt.Score)
		}
	}
}
