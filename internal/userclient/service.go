package userclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
)

type Config struct {
	ServerURL   string
	HTTPTimeout time.Duration
}

const defaultServer = "http://127.0.0.1:8080"

// Run drives the interactive player loop: login, browse the catalog, play a
// quiz attempt to submission. Correctness feedback only appears after
// submit; the server never reveals answers earlier.
func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	serverURL := strings.TrimSpace(cfg.ServerURL)
	if serverURL == "" {
		serverURL = defaultServer
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := NewHTTPClient(serverURL, &http.Client{Timeout: timeout})
	reader := bufio.NewReader(in)

	fmt.Fprintf(out, "quiz-cli\nserver=%s\n\n", serverURL)
	printHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		command := strings.ToLower(args[0])

		switch command {
		case "help":
			printHelp(out)
		case "exit":
			return nil
		case "login":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: login <email>")
				continue
			}
			if err := runLogin(ctx, reader, out, client, args[1]); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "categories":
			if err := runCategories(ctx, out, client); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "quizzes":
			categoryID := ""
			if len(args) > 1 {
				categoryID = args[1]
			}
			if err := runQuizzes(ctx, out, client, categoryID); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "play":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: play <quiz_id>")
				continue
			}
			if err := runPlay(ctx, reader, out, client, args[1]); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "completed":
			if err := runCompleted(ctx, out, client); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		default:
			fmt.Fprintln(out, "unknown command. type 'help' for usage.")
		}
	}
}

func runLogin(ctx context.Context, reader *bufio.Reader, out io.Writer, client *HTTPClient, email string) error {
	fmt.Fprint(out, "password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		return err
	}

	if err := client.Login(ctx, email, strings.TrimRight(password, "\r\n")); err != nil {
		return err
	}
	fmt.Fprintf(out, "logged in as %s\n", email)
	return nil
}

func runCategories(ctx context.Context, out io.Writer, client *HTTPClient) error {
	categories, err := client.Categories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		fmt.Fprintln(out, "No categories.")
		return nil
	}
	fmt.Fprintln(out, "Categories:")
	for _, category := range categories {
		fmt.Fprintf(out, "  %s  %s\n", category.ID, category.Name)
	}
	return nil
}

func runQuizzes(ctx context.Context, out io.Writer, client *HTTPClient, categoryID string) error {
	quizzes, err := client.Quizzes(ctx, categoryID)
	if err != nil {
		return err
	}
	if len(quizzes) == 0 {
		fmt.Fprintln(out, "No quizzes.")
		return nil
	}
	fmt.Fprintln(out, "Quizzes:")
	for _, item := range quizzes {
		fmt.Fprintf(out, "  %s  %s (%d questions)\n", item.QuizID, item.Title, item.QuestionCount)
	}
	return nil
}

func runPlay(ctx context.Context, reader *bufio.Reader, out io.Writer, client *HTTPClient, quizID string) error {
	if !client.LoggedIn() {
		return errors.New("login first")
	}

	attempt, err := client.StartAttempt(ctx, quizID)
	if err != nil {
		return err
	}

	questions, err := client.QuizQuestions(ctx, quizID)
	if err != nil {
		return err
	}
	byID := make(map[string]QuestionItem, len(questions))
	for _, question := range questions {
		byID[question.QuestionID] = question
	}

	for number, questionID := range attempt.QuestionOrder {
		question, ok := byID[questionID]
		if !ok {
			continue
		}

		fmt.Fprintln(out)
		fmt.Fprintf(out, "Q%d: %s\n\n", number+1, question.Prompt)
		for idx, choice := range question.Choices {
			fmt.Fprintf(out, "%c. %s\n", 'A'+idx, choice)
		}
		fmt.Fprintln(out)

		chosenIndex, ok := promptAnswer(reader, out, len(question.Choices))
		if !ok {
			fmt.Fprintln(out, "Skipping; an unanswered question scores zero.")
			continue
		}

		if _, err := client.SubmitAnswer(ctx, attempt.AttemptID, questionID, chosenIndex); err != nil {
			return err
		}
	}

	scored, err := client.SubmitAttempt(ctx, attempt.AttemptID)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	if scored.Score != nil {
		fmt.Fprintf(out, "Final score: %s\n", color.GreenString("%d", *scored.Score))
	} else {
		fmt.Fprintf(out, "Attempt finished with status %s\n", color.YellowString(scored.Status))
	}
	return nil
}

func runCompleted(ctx context.Context, out io.Writer, client *HTTPClient) error {
	if !client.LoggedIn() {
		return errors.New("login first")
	}

	completed, err := client.CompletedQuizzes(ctx)
	if err != nil {
		return err
	}
	if len(completed) == 0 {
		fmt.Fprintln(out, "No completed quizzes yet.")
		return nil
	}
	fmt.Fprintln(out, "Completed quizzes:")
	for _, item := range completed {
		fmt.Fprintf(out, "  %s score=%d at %s\n", item.QuizID, item.Score, item.ScoredAt.Format(time.RFC3339))
	}
	return nil
}

const maxInvalidAnswers = 3

func promptAnswer(reader *bufio.Reader, out io.Writer, choiceCount int) (int, bool) {
	if choiceCount < 1 {
		return -1, false
	}

	maxLetter := byte('A' + choiceCount - 1)
	for attempt := 1; attempt <= maxInvalidAnswers; attempt++ {
		fmt.Fprintf(out, "Your answer (A-%c): ", maxLetter)

		line, err := reader.ReadString('\n')
		if err != nil {
			return -1, false
		}

		answer := strings.ToUpper(strings.TrimSpace(line))
		if len(answer) == 1 {
			letter := answer[0]
			if letter >= 'A' && letter <= maxLetter {
				return int(letter - 'A'), true
			}
		}
		fmt.Fprintf(out, "Invalid input. Attempts remaining: %d\n", maxInvalidAnswers-attempt)
	}
	return -1, false
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  login <email>")
	fmt.Fprintln(out, "  categories")
	fmt.Fprintln(out, "  quizzes [category_id]")
	fmt.Fprintln(out, "  play <quiz_id>")
	fmt.Fprintln(out, "  completed")
	fmt.Fprintln(out, "  exit")
}
