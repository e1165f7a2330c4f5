package services

import (
	"log"

	"comentum/internal/config"
)

// Notifier reacts to CommentCreated events: it subscribes the author to
// the thread and fans a notification out to the remaining followers. The
// actual sending happens on the mailer's workers; this handler only
// queries and enqueues.
type Notifier struct {
	cfg       *config.Config
	comments  *CommentService
	followers *FollowerService
	targets   *TargetResolver
	mailer    *Mailer
}

func NewNotifier(cfg *config.Config, comments *CommentService, followers *FollowerService, targets *TargetResolver, mailer *Mailer) *Notifier {
	return &Notifier{cfg: cfg, comments: comments, followers: followers, targets: targets, mailer: mailer}
}

// Attach wires the notifier to the event bus.
func (n *Notifier) Attach(bus *Bus) {
	bus.Subscribe(EventCommentCreated, n.HandleCommentCreated)
}

func (n *Notifier) HandleCommentCreated(e Event) {
	if !n.cfg.AllowSubscription || e.Comment == nil {
		return
	}
	username := n.comments.Username(e.Comment)

	thread := n.comments.ThreadOf(e.Comment)
	followers, err := n.followers.FollowersOfExcluding(thread, e.Comment.Email)
	if err != nil {
		log.Printf("Failed to load followers for %s: %v", thread, err)
		return
	}

	if err := n.followers.FollowParentThread(e.Comment, username); err != nil {
		log.Printf("Failed to subscribe %s to %s: %v", e.Comment.Email, thread, err)
	}

	if len(followers) == 0 {
		return
	}
	threadName := n.targets.Describe(thread)
	n.mailer.SendNotificationToFollowers(e.Comment, username, threadName, followers)
}
