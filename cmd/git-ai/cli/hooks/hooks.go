// Package hooks is the dispatcher behind every installed git hook. It
// observes the repository through the hook surface plus the reflog,
// reconstructs the user's intent, and drives the rewrite engine and working
// log with the right events.
//
// Hooks are best-effort: any internal failure logs and exits 0 so the
// underlying git operation succeeds unmodified.
package hooks

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/checkpoint"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/logging"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/notesync"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/rewrite"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/rewritelog"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/settings"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/va"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/worklog"
)

// SkipEnvVar disables all hook work when set to "1".
const SkipEnvVar = "GIT_AI_SKIP_CORE_HOOKS"

// InstalledHooks are the hook names git-ai manages.
var InstalledHooks = []string{
	"pre-commit",
	"post-commit",
	"pre-rebase",
	"post-rewrite",
	"post-checkout",
	"post-merge",
	"pre-push",
	"reference-transaction",
	"post-index-change",
}

// Dispatcher routes one hook invocation.
type Dispatcher struct {
	repo   *gitx.Repo
	store  *worklog.Store
	engine *rewrite.Engine
}

// Dispatch handles one hook invocation end to end and always returns exit
// code 0.
func Dispatch(hookName string, args []string, stdin io.Reader) int {
	if os.Getenv(SkipEnvVar) == "1" {
		return 0
	}

	repo, err := gitx.FindForHook()
	if err != nil {
		return 0
	}
	cfg := settings.Load(repo.AiDir())
	if !cfg.Enabled {
		return 0
	}
	logging.SetLogLevelGetter(func() string { return cfg.LogLevel })
	_ = logging.Init(repo.AiDir())
	defer logging.Close()

	ctx := logging.WithHook(context.Background(), hookName)
	defer logging.LogDuration(ctx, slog.LevelDebug, "hook finished", time.Now())

	store := worklog.NewStore(repo.AiDir())
	d := &Dispatcher{repo: repo, store: store, engine: rewrite.New(repo, store)}

	if err := d.run(ctx, hookName, args, stdin); err != nil {
		logging.Warn(ctx, "hook failed", "error", err.Error())
	}
	return 0
}

func (d *Dispatcher) run(ctx context.Context, hookName string, args []string, stdin io.Reader) error {
	switch hookName {
	case "pre-commit":
		return d.preCommit()
	case "post-commit":
		return d.postCommit()
	case "pre-rebase":
		return d.preRebase(args)
	case "post-rewrite":
		return d.postRewrite(args, stdin)
	case "post-checkout":
		return d.postCheckout(args)
	case "post-merge":
		return d.postMerge(args)
	case "pre-push":
		return d.prePush(args)
	case "reference-transaction":
		return d.referenceTransaction(args, stdin)
	case "post-index-change":
		return d.postIndexChange()
	default:
		logging.Debug(ctx, "unknown hook, ignoring", "hook", hookName)
		return nil
	}
}

// preCommit flushes dirty-line attributions with a human checkpoint and
// remembers the pre-commit HEAD for post-commit's amend detection.
func (d *Dispatcher) preCommit() error {
	_ = checkpoint.Run(d.repo, d.store, checkpoint.Options{
		Kind:   worklog.KindHuman,
		Author: d.humanAuthor(),
	})

	state := loadState(d.repo.AiDir())
	if head, err := d.repo.Head(); err == nil {
		state.PendingCommitBaseHead = head
	}
	return saveState(d.repo.AiDir(), state)
}

// postCommit classifies what just landed: a cherry-pick, an amend (deferred
// to post-rewrite), or a regular commit.
func (d *Dispatcher) postCommit() error {
	head, err := d.repo.Head()
	if err != nil {
		return nil
	}

	state := loadState(d.repo.AiDir())
	originalCommit := state.PendingCommitBaseHead
	state.PendingCommitBaseHead = ""
	if err := saveState(d.repo.AiDir(), state); err != nil {
		return err
	}

	if d.isRebaseInProgress() {
		return nil
	}

	// A live CHERRY_PICK_HEAD means this commit finished a conflicted pick.
	if sourceSha, err := d.repo.RevParse("CHERRY_PICK_HEAD"); err == nil {
		originalHead := d.repo.FirstParent(head)
		if originalHead != "" {
			return d.engine.Record(rewritelog.NewCherryPickComplete(rewritelog.CherryPickCompleteEvent{
				OriginalHead:  originalHead,
				NewHead:       head,
				SourceCommits: []string{sourceSha},
				NewCommits:    []string{head},
			}), d.humanAuthor())
		}
	}

	if strings.Contains(d.repo.ReflogSubject(), "cherry-pick") {
		if pending := d.takePendingCherryPick(); pending != nil {
			err := d.engine.Record(rewritelog.NewCherryPickComplete(rewritelog.CherryPickCompleteEvent{
				OriginalHead:  pending.OriginalHead,
				NewHead:       head,
				SourceCommits: []string{pending.SourceCommit},
				NewCommits:    []string{head},
			}), d.humanAuthor())
			return err
		}
	}

	// `git commit --amend` fires post-commit and post-rewrite (amend). Let
	// post-rewrite stay the single source of truth for amends.
	isAmend := strings.HasPrefix(d.repo.ReflogSubject(), "commit (amend):")
	if !isAmend && originalCommit != "" && d.repo.FirstParent(head) != originalCommit {
		isAmend = true
	}
	if isAmend {
		logging.Debug(context.Background(), "deferring amend to post-rewrite")
		return nil
	}

	// When pre-commit never ran (hooks bypassed, worktree scripts), fall
	// back to the commit's own first parent. Empty means the initial commit.
	if originalCommit == "" {
		originalCommit = d.repo.FirstParent(head)
	}
	return d.engine.Record(rewritelog.NewCommit(originalCommit, head), d.humanAuthor())
}

// preRebase marks the rewrite journal and snapshots dirty attributions for
// the --autostash restore after the rebase lands. The hook argv carries the
// upstream (and optionally the branch); interactivity only shows up in the
// reflog action.
func (d *Dispatcher) preRebase(_ []string) error {
	head, err := d.repo.Head()
	if err != nil {
		return nil
	}

	interactive := strings.Contains(os.Getenv("GIT_REFLOG_ACTION"), "rebase -i")
	onto := d.resolveRebaseOnto()
	if err := d.store.AppendRewriteEvent(rewritelog.NewRebaseStart(head, interactive, onto)); err != nil {
		return err
	}

	state := loadState(d.repo.AiDir())
	state.PendingAutostash = nil
	state.PendingPullAutostash = nil

	if d.repo.HasUncommittedChanges() {
		if logJSON, ok := d.snapshotDirtyAttributions(head); ok {
			state.PendingAutostash = &PendingAutostash{AuthorshipLogJSON: logJSON}
			logging.Debug(context.Background(), "captured pending autostash attributions")
		}
	}
	return saveState(d.repo.AiDir(), state)
}

// postRewrite handles both amend and rebase modes. For rebases, the mapping
// computed from the RebaseStart event and the new HEAD is preferred; the
// stdin old/new pairs are the fallback when no start event exists.
func (d *Dispatcher) postRewrite(args []string, stdin io.Reader) error {
	mode := ""
	if len(args) > 0 {
		mode = args[0]
	}
	mappings := parseRewriteMappings(stdin)

	switch mode {
	case "amend":
		if d.isRebaseInProgress() || d.activeRebaseStart() != nil {
			logging.Debug(context.Background(), "skipping amend handling during active rebase")
			return nil
		}
		if len(mappings) == 0 {
			return nil
		}
		return d.engine.Record(rewritelog.NewCommitAmend(mappings[0][0], mappings[0][1]), d.humanAuthor())

	case "rebase":
		newHead, err := d.repo.Head()
		if err != nil {
			return nil
		}

		var originalCommits, newCommits []string
		var interactive bool

		if start := d.latestRebaseStart(); start != nil {
			originalCommits, newCommits, err = BuildRebaseMappings(d.repo, start.OriginalHead, newHead)
			if err == nil {
				interactive = start.IsInteractive
			}
		} else if len(mappings) > 0 {
			for _, pair := range mappings {
				originalCommits = append(originalCommits, pair[0])
				newCommits = append(newCommits, pair[1])
			}
			newHead = newCommits[len(newCommits)-1]
		}

		if len(originalCommits) > 0 && len(newCommits) > 0 {
			event := rewritelog.NewRebaseComplete(rewritelog.RebaseCompleteEvent{
				OriginalHead:    originalCommits[len(originalCommits)-1],
				NewHead:         newCommits[len(newCommits)-1],
				IsInteractive:   interactive,
				OriginalCommits: originalCommits,
				NewCommits:      newCommits,
			})
			if err := d.engine.Record(event, d.humanAuthor()); err != nil {
				return err
			}
		}

		if err := d.maybeRestoreRebaseAutostash(newHead); err != nil {
			return err
		}
		return d.maybeRestorePendingPullAutostash(newHead)
	}
	return nil
}

// postCheckout renames the working log across branch switches and fetches
// notes on the initial clone checkout.
func (d *Dispatcher) postCheckout(args []string) error {
	if len(args) < 3 {
		return nil
	}
	oldHead, newHead := args[0], args[1]
	branchCheckout := args[2] == "1"

	if isZeroOid(oldHead) {
		if remote := d.repo.DefaultRemote(); remote != "" {
			_ = notesync.Fetch(d.repo, remote)
		}
		return nil
	}

	if branchCheckout && oldHead != newHead {
		_ = d.store.Rename(oldHead, newHead)
		return d.trimWorkingLogToCurrentChanges(newHead)
	}
	if !branchCheckout && oldHead == newHead {
		return d.trimWorkingLogToCurrentChanges(oldHead)
	}
	return nil
}

// postMerge handles --squash (materialize a MergeSquash event from the
// reflog action) and pull merges (working log follows ORIG_HEAD to HEAD).
func (d *Dispatcher) postMerge(args []string) error {
	squash := len(args) > 0 && args[0] == "1"
	if squash {
		d.prepareMergeSquash()
	}

	if strings.HasPrefix(d.repo.ReflogSubject(), "pull") {
		oldHead, errOld := d.repo.RevParse("ORIG_HEAD")
		newHead, errNew := d.repo.Head()
		if errOld == nil && errNew == nil && oldHead != newHead {
			_ = d.store.Rename(oldHead, newHead)
			return d.maybeRestorePendingPullAutostash(newHead)
		}
	}
	return nil
}

func (d *Dispatcher) prepareMergeSquash() {
	sourceRef := parseMergeSourceRefFromReflogAction(os.Getenv("GIT_REFLOG_ACTION"))
	if sourceRef == "" {
		return
	}
	sourceHead, err := d.repo.RevParse(sourceRef)
	if err != nil {
		return
	}
	baseHead, err := d.repo.Head()
	if err != nil {
		return
	}
	event := rewritelog.NewMergeSquash(rewritelog.MergeSquashEvent{
		SourceRef:  sourceRef,
		SourceHead: sourceHead,
		BaseBranch: d.repo.HeadRefName(),
		BaseHead:   baseHead,
	})
	_ = d.engine.Record(event, d.humanAuthor())
}

// prePush publishes notes to the pushed remote alongside the real push.
func (d *Dispatcher) prePush(args []string) error {
	if len(args) == 0 {
		return nil
	}
	bg := notesync.StartPush(d.repo, args[0])
	bg.Join()
	return nil
}

// referenceTransaction watches ref updates for resets, stashes,
// cherry-picks, remote syncs, and pull --rebase completions.
func (d *Dispatcher) referenceTransaction(args []string, stdin io.Reader) error {
	stage := ""
	if len(args) > 0 {
		stage = args[0]
	}
	if stage != "prepared" && stage != "committed" {
		return nil
	}

	updates := parseRefTransactionLines(stdin)
	if len(updates) == 0 {
		return nil
	}

	obs := observeRefUpdates(updates)

	if stage == "prepared" {
		return d.referenceTransactionPrepared(obs)
	}
	return d.referenceTransactionCommitted(obs)
}

func (d *Dispatcher) referenceTransactionPrepared(obs refObservations) error {
	state := loadState(d.repo.AiDir())

	if obs.sawOrigHeadUpdate {
		state.PendingPreparedOrigHead = nowMs()
		if strings.HasPrefix(os.Getenv("GIT_REFLOG_ACTION"), "pull --rebase") {
			d.capturePendingPullAutostash(&state)
		}
	}

	recentOrigHead := state.PendingPreparedOrigHead != 0 &&
		!expired(state.PendingPreparedOrigHead, stateEventMaxAge)

	if recentOrigHead && obs.movedMainRef != nil && !d.isRebaseInProgress() {
		// An ORIG_HEAD update plus a branch move outside a rebase is a
		// reset taking shape; flush attributions before the ref lands.
		_ = checkpoint.Run(d.repo, d.store, checkpoint.Options{
			Kind:   worklog.KindHuman,
			Author: d.humanAuthor(),
		})
		state.PendingPreparedOrigHead = 0
	}

	if state.PendingPreparedOrigHead != 0 && expired(state.PendingPreparedOrigHead, stateEventMaxAge) {
		state.PendingPreparedOrigHead = 0
	}
	if state.PendingPullAutostash != nil && expired(state.PendingPullAutostash.CreatedAtMs, pendingPullAutostashTTL) {
		state.PendingPullAutostash = nil
	}
	return saveState(d.repo.AiDir(), state)
}

func (d *Dispatcher) referenceTransactionCommitted(obs refObservations) error {
	for remote := range obs.remotesToSync {
		bg := notesync.StartFetch(d.repo, remote)
		bg.Join()
	}

	if obs.createdStashSha != "" {
		_ = d.handleStashCreated(obs.createdStashSha)
	}
	if obs.deletedStashSha != "" {
		_ = d.restoreStashAttributions(obs.deletedStashSha)
		d.clearPendingStashApply()
	}
	if obs.createdAutoMerge {
		d.markPendingStashApply()
	}
	if obs.createdCherryPickHead != "" {
		d.setPendingCherryPick(obs.createdCherryPickHead)
	}

	reflog := d.repo.ReflogSubject()

	if obs.deletedCherryPickHead != "" && strings.Contains(reflog, "cherry-pick") && strings.Contains(reflog, "abort") {
		d.clearPendingCherryPick()
	}

	if obs.movedMainRef != nil && !d.isRebaseInProgress() && strings.HasPrefix(reflog, "reset:") {
		kind := d.detectResetKind()
		_ = d.engine.Record(rewritelog.NewReset(kind, obs.movedMainRef[0], obs.movedMainRef[1]), d.humanAuthor())
	}

	if strings.HasPrefix(reflog, "pull --rebase (finish):") {
		if start := d.activeRebaseStart(); start != nil {
			d.processRebaseCompletionFromStart(start)
		}
		if newHead, err := d.repo.Head(); err == nil {
			_ = d.maybeRestorePendingPullAutostash(newHead)
		}
	}
	return nil
}

func (d *Dispatcher) postIndexChange() error {
	return d.maybeRestoreStashApplyWithoutPop()
}

// --- rebase helpers ---

// BuildRebaseMappings walks both sides of a rebase down to their merge base
// and returns the chronological (oldest-first) commit lists. All commits
// pass through: the engine, not the mapper, owns squash/drop/reorder
// semantics.
func BuildRebaseMappings(repo *gitx.Repo, originalHead, newHead string) (originalCommits, newCommits []string, err error) {
	mergeBase, err := repo.MergeBase(originalHead, newHead)
	if err != nil {
		return nil, nil, err
	}
	originalCommits, err = repo.CommitRangeChronological(mergeBase, originalHead)
	if err != nil {
		return nil, nil, err
	}
	newCommits, err = repo.CommitRangeChronological(mergeBase, newHead)
	if err != nil {
		return nil, nil, err
	}
	return originalCommits, newCommits, nil
}

func (d *Dispatcher) processRebaseCompletionFromStart(start *rewritelog.RebaseStartEvent) {
	newHead, err := d.repo.Head()
	if err != nil {
		return
	}
	originalCommits, newCommits, err := BuildRebaseMappings(d.repo, start.OriginalHead, newHead)
	if err != nil {
		_ = d.maybeRestoreRebaseAutostash(newHead)
		return
	}
	if len(originalCommits) > 0 && len(newCommits) > 0 {
		_ = d.engine.Record(rewritelog.NewRebaseComplete(rewritelog.RebaseCompleteEvent{
			OriginalHead:    start.OriginalHead,
			NewHead:         newHead,
			OriginalCommits: originalCommits,
			NewCommits:      newCommits,
		}), d.humanAuthor())
	}
	_ = d.maybeRestoreRebaseAutostash(newHead)
}

// latestRebaseStart returns the most recent RebaseStart event regardless of
// completion state.
func (d *Dispatcher) latestRebaseStart() *rewritelog.RebaseStartEvent {
	events, err := d.store.ReadRewriteEvents()
	if err != nil {
		return nil
	}
	for _, event := range events {
		if event.RebaseStart != nil {
			return event.RebaseStart
		}
	}
	return nil
}

// activeRebaseStart scans newest-first and stops at a terminal event: a
// RebaseStart found before any RebaseComplete/RebaseAbort means a rebase is
// active.
func (d *Dispatcher) activeRebaseStart() *rewritelog.RebaseStartEvent {
	events, err := d.store.ReadRewriteEvents()
	if err != nil {
		return nil
	}
	for _, event := range events {
		if event.IsRebaseTerminal() {
			return nil
		}
		if event.RebaseStart != nil {
			return event.RebaseStart
		}
	}
	return nil
}

func (d *Dispatcher) isRebaseInProgress() bool {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(d.repo.GitDir(), dir)); err == nil {
			return true
		}
	}
	return false
}

// resolveRebaseOnto reads the onto commit from git's rebase state files,
// when present.
func (d *Dispatcher) resolveRebaseOnto() string {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		data, err := os.ReadFile(filepath.Join(d.repo.GitDir(), dir, "onto"))
		if err == nil {
			if onto := strings.TrimSpace(string(data)); onto != "" {
				return onto
			}
		}
	}
	return ""
}

// --- autostash restore ---

// snapshotDirtyAttributions collapses the current working-log VA into an
// authorship log JSON for later restore.
func (d *Dispatcher) snapshotDirtyAttributions(head string) (string, bool) {
	view, err := va.FromWorkingLog(d.repo, d.store, head, d.humanAuthor())
	if err != nil || view.IsEmpty() {
		return "", false
	}
	log := view.ToAuthorshipLog()
	if log.IsEmpty() {
		return "", false
	}
	logJSON, err := log.Serialize()
	if err != nil {
		return "", false
	}
	return logJSON, true
}

func (d *Dispatcher) maybeRestoreRebaseAutostash(newHead string) error {
	state := loadState(d.repo.AiDir())
	pending := state.PendingAutostash
	if pending == nil {
		return nil
	}
	state.PendingAutostash = nil
	if err := saveState(d.repo.AiDir(), state); err != nil {
		return err
	}

	log, err := authorship.Deserialize(pending.AuthorshipLogJSON)
	if err != nil {
		return nil
	}
	logging.Debug(context.Background(), "restoring pending autostash attributions")
	return d.applyInitialFromAuthorshipLog(newHead, log)
}

func (d *Dispatcher) capturePendingPullAutostash(state *CoreHookState) {
	head, err := d.repo.Head()
	if err != nil {
		return
	}
	logJSON, ok := d.snapshotDirtyAttributions(head)
	if !ok {
		return
	}
	state.PendingPullAutostash = &PendingPullAutostash{
		AuthorshipLogJSON: logJSON,
		CreatedAtMs:       nowMs(),
	}
	logging.Debug(context.Background(), "captured pending pull-autostash attributions")
}

func (d *Dispatcher) maybeRestorePendingPullAutostash(newHead string) error {
	state := loadState(d.repo.AiDir())
	pending := state.PendingPullAutostash
	if pending == nil {
		return nil
	}
	state.PendingPullAutostash = nil
	if err := saveState(d.repo.AiDir(), state); err != nil {
		return err
	}
	if expired(pending.CreatedAtMs, pendingPullAutostashTTL) {
		return nil
	}

	log, err := authorship.Deserialize(pending.AuthorshipLogJSON)
	if err != nil {
		return nil
	}
	logging.Debug(context.Background(), "restoring pending pull-autostash attributions")
	return d.applyInitialFromAuthorshipLog(newHead, log)
}

// applyInitialFromAuthorshipLog folds a snapshot log into the INITIAL at the
// new base commit, shifting line numbers through the tracker-backed restore
// in the rewrite engine's fold (line numbers may have moved if the operation
// added lines above).
func (d *Dispatcher) applyInitialFromAuthorshipLog(baseCommit string, log *authorship.AuthorshipLog) error {
	wl := d.store.ForBaseCommit(baseCommit)
	existing := wl.ReadInitialAttributions()

	for _, attestation := range log.Attestations {
		lineAttrs := attestationToLineAttrs(attestation)
		if len(lineAttrs) > 0 {
			existing.Files[attestation.FilePath] = lineAttrs
		}
	}
	for promptID, record := range log.Metadata.Prompts {
		existing.Prompts[promptID] = record
	}
	return wl.WriteInitialAttributions(existing.Files, existing.Prompts)
}

// --- pending cherry-pick state ---

func (d *Dispatcher) setPendingCherryPick(sourceCommit string) {
	head, err := d.repo.Head()
	if err != nil {
		return
	}
	state := loadState(d.repo.AiDir())
	state.PendingCherryPick = &PendingCherryPick{
		OriginalHead: head,
		SourceCommit: sourceCommit,
		CreatedAtMs:  nowMs(),
	}
	_ = saveState(d.repo.AiDir(), state)
}

func (d *Dispatcher) takePendingCherryPick() *PendingCherryPick {
	state := loadState(d.repo.AiDir())
	pending := state.PendingCherryPick
	if pending == nil {
		return nil
	}
	state.PendingCherryPick = nil
	_ = saveState(d.repo.AiDir(), state)
	if expired(pending.CreatedAtMs, pendingCherryPickTTL) {
		return nil
	}
	return pending
}

func (d *Dispatcher) clearPendingCherryPick() {
	state := loadState(d.repo.AiDir())
	state.PendingCherryPick = nil
	_ = saveState(d.repo.AiDir(), state)
}

// --- reset detection ---

// detectResetKind infers the reset mode from the post-reset worktree:
// staged changes mean --soft, unstaged-only means --mixed, clean means
// --hard.
func (d *Dispatcher) detectResetKind() rewritelog.ResetKind {
	summary := d.repo.SummarizeWorktree()
	switch {
	case summary.HasStaged:
		return rewritelog.ResetSoft
	case summary.HasUnstaged:
		return rewritelog.ResetMixed
	default:
		return rewritelog.ResetHard
	}
}

// trimWorkingLogToCurrentChanges drops INITIAL entries and checkpoint
// entries for files that are no longer dirty.
func (d *Dispatcher) trimWorkingLogToCurrentChanges(baseCommit string) error {
	changed, err := d.repo.StagedAndUnstagedFiles()
	if err != nil {
		return err
	}
	changedSet := make(map[string]bool, len(changed))
	for _, file := range changed {
		changedSet[file] = true
	}

	wl := d.store.ForBaseCommit(baseCommit)

	initial := wl.ReadInitialAttributions()
	for file := range initial.Files {
		if !changedSet[file] {
			delete(initial.Files, file)
		}
	}
	if err := wl.WriteInitialAttributions(initial.Files, initial.Prompts); err != nil {
		return err
	}

	checkpoints, err := wl.ReadAllCheckpoints()
	if err != nil {
		return err
	}
	var kept []worklog.Checkpoint
	for _, cp := range checkpoints {
		var entries []worklog.CheckpointEntry
		for _, entry := range cp.Entries {
			if changedSet[entry.File] {
				entries = append(entries, entry)
			}
		}
		if len(entries) > 0 {
			cp.Entries = entries
			kept = append(kept, cp)
		}
	}
	return wl.WriteAllCheckpoints(kept)
}

// humanAuthor reads the configured identity, "Name <email>".
func (d *Dispatcher) humanAuthor() string {
	name, _ := d.repo.Git("config", "--get", "user.name")
	email, _ := d.repo.Git("config", "--get", "user.email")
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" && email == "" {
		return ""
	}
	return name + " <" + email + ">"
}
