package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/sherpa/internal/diffparse"
	"github.com/dshills/sherpa/internal/github"
	"github.com/dshills/sherpa/internal/review"
)

// Pull request flags
var (
	flagPROwner  string
	flagPRRepo   string
	flagPRDryRun bool
)

var prCmd = &cobra.Command{
	Use:   "pr <number>",
	Short: "Review a GitHub pull request",
	Long: "Fetch a pull request diff from GitHub, run the review agents, and post the " +
		"result as a pull request review. Requires GITHUB_TOKEN.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil || number <= 0 {
			return fmt.Errorf("invalid pull request number %q", args[0])
		}
		e, err := loadEnv(reviewOverrides())
		if err != nil {
			return err
		}
		runPR(cmd.Context(), e, number)
		return nil
	},
}

func runPR(ctx context.Context, e *env, number int) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	repo, err := prRepo(ctx, e)
	if err != nil {
		fail(ExitUsageError, fmt.Errorf("%w (use --owner and --repo)", err))
		return
	}

	gh, err := github.NewClient()
	if err != nil {
		fail(ExitAuthError, err)
		return
	}
	fmt.Fprintf(os.Stderr, "Fetching PR #%d from %s...\n", number, repo)
	diff, err := gh.PullDiff(ctx, repo, number)
	if err != nil {
		githubFailed(err)
		return
	}
	if strings.TrimSpace(diff) == "" {
		fmt.Fprintln(os.Stdout, "Pull request has no changes to review.")
		return
	}

	client, opts, ok := prepareReview(e)
	if !ok {
		return
	}
	res, err := review.RunDiff(ctx, client, diff, nil, opts)
	if err != nil {
		reviewFailed(err)
		return
	}
	if !reportReview(e, res) {
		return
	}

	if flagPRDryRun {
		fmt.Fprintf(os.Stderr, "Dry run: %d comments, not posting to GitHub.\n", res.TotalComments)
	} else if !allFailed(res) {
		ghReview := github.BuildReview(res, diffparse.Parse(diff))
		fmt.Fprintf(os.Stderr, "Posting review (%d inline comments)...\n", len(ghReview.Comments))
		if err := gh.PostReview(ctx, repo, number, ghReview); err != nil {
			githubFailed(err)
			return
		}
		fmt.Fprintf(os.Stderr, "Review posted to PR #%d.\n", number)
	}
	gateReview(e, res)
}

// prRepo returns the repository from --owner/--repo, filling gaps from the
// origin remote.
func prRepo(ctx context.Context, e *env) (github.Repo, error) {
	repo := github.Repo{Owner: flagPROwner, Name: flagPRRepo}
	if repo.Owner != "" && repo.Name != "" {
		return repo, nil
	}
	detected, err := github.DetectRepo(ctx, e.workDir)
	if err != nil {
		return repo, err
	}
	if repo.Owner == "" {
		repo.Owner = detected.Owner
	}
	if repo.Name == "" {
		repo.Name = detected.Name
	}
	return repo, nil
}

func githubFailed(err error) {
	if errors.Is(err, github.ErrUnauthorized) {
		fail(ExitAuthError, err)
		return
	}
	fail(ExitRuntimeError, err)
}

func init() {
	addReviewFlags(prCmd)
	prCmd.Flags().StringVar(&flagPROwner, "owner", "", "Repository owner (default: from the origin remote)")
	prCmd.Flags().StringVar(&flagPRRepo, "repo", "", "Repository name (default: from the origin remote)")
	prCmd.Flags().BoolVar(&flagPRDryRun, "dry-run", false, "Review without posting to GitHub")
}
