package kudos

// Dashboard DOM selectors
// These are isolated here because the site changes its DOM frequently
// Update these when kudos stop being given

const (
	// Feed selectors
	WebFeedEntry           = `[data-testid="web-feed-entry"]`
	EntryHeader            = `[data-testid="entry-header"]`
	OwnersName             = `[data-testid="owners-name"]`
	KudosCommentsContainer = `[data-testid="kudos_comments_container"]`
	UnfilledKudos          = `[data-testid="unfilled_kudos"]`

	// Club post indicators
	GroupHeader          = `[data-testid="group-header"]`
	ClubMemberPostHeader = `.clubMemberPostHeaderLinks`

	// Navigation menu link to the signed-in athlete's profile
	OwnProfileLink = `.user-menu > a`
)

// AthletePathSegment precedes the athlete id in profile links
const AthletePathSegment = "/athletes/"
