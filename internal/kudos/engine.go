package kudos

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ibeckermayer/kudos4me/internal/dom"
	"github.com/ibeckermayer/kudos4me/internal/logging"
	"github.com/ibeckermayer/kudos4me/internal/types"
)

// reloadFunc recovers from an empty feed. It is called at most once per sweep.
type reloadFunc func(ctx context.Context, rs *run) error

// sweep walks the feed entries in rendered order and gives kudos where allowed
func (r *Runner) sweep(ctx context.Context, rs *run, reload reloadFunc) error {
	logger := logging.FromContext(ctx)

	entries := r.feedEntries(ctx)
	if len(entries) == 0 && reload != nil {
		logger.Warn("no data found, try relogin")
		if err := reload(ctx, rs); err != nil {
			return fmt.Errorf("relogin after empty feed: %w", err)
		}
		entries = r.feedEntries(ctx)
	}

	rs.result.EntriesFound = len(entries)
	logger.Info("web feeds found", slog.Int("count", len(entries)))

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if elapsed := r.now().Sub(rs.start); elapsed > r.opts.MaxRunDuration {
			logger.Warn("max run duration reached",
				slog.Duration("elapsed", elapsed),
				slog.Int("processed", rs.result.EntriesProcessed),
				slog.Int("remaining", len(entries)-i))
			rs.result.BudgetExhausted = true
			break
		}

		report := r.processEntry(ctx, rs, i, entry)
		rs.result.Entries = append(rs.result.Entries, report)
		rs.result.EntriesProcessed++
		rs.result.Given += report.Given
	}

	return nil
}

func (r *Runner) feedEntries(ctx context.Context) []dom.Element {
	entries, err := r.page.Find(ctx, WebFeedEntry)
	if err != nil {
		logging.FromContext(ctx).Error("failed to query feed entries", slog.String("err", err.Error()))
		return nil
	}
	return entries
}

// processEntry classifies one feed entry and clicks kudos for every participant
// that is not the signed-in athlete
func (r *Runner) processEntry(ctx context.Context, rs *run, index int, entry dom.Element) types.EntryReport {
	logger := logging.FromContext(ctx).With(slog.Int("entry", index))
	ctx = logging.ContextWithLogger(ctx, logger)

	report := types.EntryReport{Index: index}
	kind, headers := classify(ctx, entry, &report.Lookups)
	report.Kind = kind

	switch kind {
	case types.KindClubPost:
		logger.Info("skipping club post")

	case types.KindNonActivity:
		logger.Info("skipping non-activity entry")

	case types.KindMulti:
		logger.Info("found multiple list entries", slog.Int("participants", len(headers)))
		containers, lk := find(ctx, entry, "kudos_comments_container", KudosCommentsContainer)
		report.Lookups = append(report.Lookups, lk)

		for j, header := range headers {
			p := types.ParticipantReport{Index: j}
			p.OwnerID = r.ownerID(ctx, rs, header, &p.Lookups)
			p.IsSelf = p.OwnerID == rs.ownID

			if !p.IsSelf {
				if j < len(containers) {
					p.Clicked = r.clickKudos(ctx, containers[j], &p.Lookups)
				} else {
					p.Lookups = append(p.Lookups, types.Lookup{
						Op:     "kudos_comments_container",
						Status: types.NotFound,
						Detail: fmt.Sprintf("no container for participant %d of %d", j, len(containers)),
					})
				}
			}
			if p.Clicked {
				report.Given++
			}
			report.Participants = append(report.Participants, p)
		}

	case types.KindSingle:
		p := types.ParticipantReport{Index: 0}
		p.OwnerID = r.ownerID(ctx, rs, entry, &p.Lookups)
		p.IsSelf = p.OwnerID == rs.ownID
		if !p.IsSelf {
			p.Clicked = r.clickKudos(ctx, entry, &p.Lookups)
		}
		if p.Clicked {
			report.Given++
		}
		report.Participants = append(report.Participants, p)
	}

	return report
}

// classify decides what kind of feed entry this is. For multi-participant
// activities it also returns the participant headers.
func classify(ctx context.Context, entry dom.Element, lookups *[]types.Lookup) (types.EntryKind, []dom.Element) {
	headers, lk := find(ctx, entry, "entry-header", EntryHeader)
	*lookups = append(*lookups, lk)

	if isClubPost(ctx, entry, lookups) {
		return types.KindClubPost, nil
	}

	if len(headers) > 1 {
		return types.KindMulti, headers
	}

	owners, lk := find(ctx, entry, "owners-name", OwnersName)
	*lookups = append(*lookups, lk)
	if len(owners) == 0 {
		return types.KindNonActivity, nil
	}
	return types.KindSingle, nil
}

func isClubPost(ctx context.Context, entry dom.Element, lookups *[]types.Lookup) bool {
	groups, lk := find(ctx, entry, "group-header", GroupHeader)
	*lookups = append(*lookups, lk)
	if len(groups) > 0 {
		return true
	}

	posts, lk := find(ctx, entry, "club-member-post-header", ClubMemberPostHeader)
	*lookups = append(*lookups, lk)
	return len(posts) > 0
}

// ownerID extracts the athlete id of the container's owner. When it cannot be
// read the container is attributed to the signed-in athlete, so it is skipped.
func (r *Runner) ownerID(ctx context.Context, rs *run, container dom.Element, lookups *[]types.Lookup) string {
	logger := logging.FromContext(ctx)

	fail := func(status types.LookupStatus, detail string) string {
		*lookups = append(*lookups, types.Lookup{Op: "owner-id", Status: status, Detail: detail})
		logger.Warn("some issue with getting owners-name container", slog.String("detail", detail))
		return rs.ownID
	}

	owners, err := container.Find(ctx, OwnersName)
	if err != nil {
		return fail(types.Failed, err.Error())
	}
	switch len(owners) {
	case 0:
		return fail(types.NotFound, "no owners-name element")
	case 1:
	default:
		return fail(types.Failed, fmt.Sprintf("%d owners-name elements", len(owners)))
	}

	href, ok, err := owners[0].Attribute(ctx, "href")
	if err != nil {
		return fail(types.Failed, err.Error())
	}
	if !ok {
		return fail(types.NotFound, "owners-name has no href")
	}

	id, ok := athleteID(href)
	if !ok {
		return fail(types.Failed, "unexpected profile link "+href)
	}

	*lookups = append(*lookups, types.Lookup{Op: "owner-id", Status: types.Found, Detail: id})
	return id
}

// clickKudos clicks the container's unfilled kudos button when there is
// exactly one, then pauses so the site is not flooded. It reports whether a
// click was issued.
func (r *Runner) clickKudos(ctx context.Context, container dom.Element, lookups *[]types.Lookup) bool {
	logger := logging.FromContext(ctx)

	buttons, lk := find(ctx, container, "unfilled_kudos", UnfilledKudos)
	*lookups = append(*lookups, lk)
	if len(buttons) != RequiredUnfilledControls {
		if len(buttons) > RequiredUnfilledControls {
			logger.Debug("ambiguous kudos buttons, skipping", slog.Int("buttons", len(buttons)))
		}
		return false
	}

	if err := buttons[0].Click(ctx); err != nil {
		*lookups = append(*lookups, types.Lookup{Op: "click", Status: types.Failed, Detail: err.Error()})
		logger.Error("failed to click kudos button", slog.String("err", err.Error()))
		return false
	}
	*lookups = append(*lookups, types.Lookup{Op: "click", Status: types.Found})
	logger.Info("kudos button clicked")

	if err := r.sleep(ctx, r.opts.ClickPause); err != nil {
		logger.Debug("click pause interrupted", slog.String("err", err.Error()))
	}
	return true
}

// find runs a descendant query and records its outcome
func find(ctx context.Context, parent dom.Element, op, selector string) ([]dom.Element, types.Lookup) {
	found, err := parent.Find(ctx, selector)
	if err != nil {
		return nil, types.Lookup{Op: op, Status: types.Failed, Detail: err.Error()}
	}
	if len(found) == 0 {
		return nil, types.Lookup{Op: op, Status: types.NotFound}
	}
	return found, types.Lookup{Op: op, Status: types.Found, Detail: fmt.Sprintf("%d", len(found))}
}
