// Copyright 2024-2026 Aiku AI

package handlers

import (
	"fmt"
	"strings"

	"github.com/aiku/hookrelay/pkg/events"
	"github.com/aiku/hookrelay/pkg/msgbuilder"
	"github.com/aiku/hookrelay/pkg/routing"
)

// Sub-actions that only add noise to the room.
var (
	quietIssueActions = set("labeled", "unlabeled", "edited", "milestoned", "demilestoned", "pinned", "unpinned")
	quietPullActions  = set("labeled", "unlabeled", "edited", "synchronize", "review_request_removed",
		"milestoned", "demilestoned", "locked", "unlocked", "auto_merge_enabled", "auto_merge_disabled",
		"enqueued", "dequeued")
	quietCommentActions = set("edited", "deleted")
)

func set(items ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}

func quiet(actions map[string]struct{}, action string) bool {
	_, ok := actions[action]
	return ok
}

// repoMessage starts a message tagged with the repository name.
func repoMessage(repo events.Repository) (*msgbuilder.Builder, *routing.Hint) {
	b := msgbuilder.New()
	b.Tag(repo.Name, "")
	b.WriteText(" ")
	return b, routing.NewHint(repo.FullName)
}

// orgMessage starts a message tagged with the organization login.
func orgMessage(org events.Org) (*msgbuilder.Builder, *routing.Hint) {
	b := msgbuilder.New()
	b.Tag(org.Login, "")
	b.WriteText(" ")
	return b, routing.NewHint(org.Login)
}

func writeBody(b *msgbuilder.Builder, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	b.WriteText(": ")
	b.WriteText(msgbuilder.Shorten(firstLine(body), msgbuilder.ShortBudget))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimRight(line, "\r")
}

func writeTitle(b *msgbuilder.Builder, title string) {
	if title == "" {
		return
	}
	b.WriteText(": ")
	b.WriteText(msgbuilder.Shorten(title, msgbuilder.LongBudget))
}

func (s *Set) create(evt *events.CreateEvent) *Response {
	// New branches are announced by the push that creates them.
	if evt.RefType != "tag" {
		return nil
	}
	b, hint := repoMessage(evt.Repository)
	fmt.Fprintf(b, "%s created tag ", evt.Sender.Login)
	b.PrimaryLink(evt.Ref, evt.Repository.RefURL(evt.Ref))
	return respond(b, hint)
}

func (s *Set) commitComment(evt *events.CommitCommentEvent) *Response {
	if evt.Action != "" && evt.Action != "created" {
		return s.unhandled(events.GitHubCommitComment, evt.Action)
	}
	b, hint := repoMessage(evt.Repository)
	fmt.Fprintf(b, "%s commented on commit ", evt.Sender.Login)
	b.PrimaryLink(shortSHA(evt.Comment.CommitID), evt.Comment.HTMLURL)
	writeBody(b, evt.Comment.Body)
	return respond(b, hint)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func (s *Set) fork(evt *events.ForkEvent) *Response {
	b, hint := repoMessage(evt.Repository)
	fmt.Fprintf(b, "%s forked the repository to ", evt.Sender.Login)
	b.PrimaryLink(evt.Forkee.FullName, evt.Forkee.HTMLURL)
	return respond(b, hint)
}

func (s *Set) issueComment(evt *events.IssueCommentEvent) *Response {
	if quiet(quietCommentActions, evt.Action) {
		return nil
	}
	if evt.Action != "created" {
		return s.unhandled(events.GitHubIssueComment, evt.Action)
	}
	noun := "issue"
	if evt.Issue.IsPullRequest() {
		noun = "pull request"
	}
	b, hint := repoMessage(evt.Repository)
	fmt.Fprintf(b, "%s commented on %s ", evt.Sender.Login, noun)
	b.PrimaryLink(fmt.Sprintf("#%d", evt.Issue.Number), evt.Comment.HTMLURL)
	writeBody(b, evt.Comment.Body)
	return respond(b, hint)
}

func (s *Set) issues(evt *events.IssuesEvent) *Response {
	if quiet(quietIssueActions, evt.Action) {
		return nil
	}
	actor := evt.Sender.Login
	var verb string
	switch evt.Action {
	case "opened", "closed", "reopened", "locked", "unlocked", "transferred":
		verb = evt.Action + " issue"
	case "deleted":
		b, hint := repoMessage(evt.Repository)
		fmt.Fprintf(b, "%s deleted issue #%d", actor, evt.Issue.Number)
		writeTitle(b, evt.Issue.Title)
		return respond(b, hint)
	case "assigned", "unassigned":
		verb = assignmentVerb(evt.Action, actor, evt.Assignee) + " issue"
	default:
		return s.unhandled(events.GitHubIssues, evt.Action)
	}
	b, hint := repoMessage(evt.Repository)
	fmt.Fprintf(b, "%s %s ", actor, verb)
	b.PrimaryLink(fmt.Sprintf("#%d", evt.Issue.Number), evt.Issue.HTMLURL)
	writeTitle(b, evt.Issue.Title)
	return respond(b, hint)
}

// assignmentVerb phrases an (un)assignment, collapsing self-assignment into
// a single verb.
func assignmentVerb(action, actor string, assignee *events.User) string {
	switch {
	case assignee == nil:
		return action
	case assignee.Login == actor && action == "assigned":
		return "self-assigned"
	case assignee.Login == actor:
		return "self-unassigned from"
	case action == "assigned":
		return "assigned " + assignee.Login + " to"
	default:
		return "unassigned " + assignee.Login + " from"
	}
}

func (s *Set) pullRequest(evt *events.PullRequestEvent) *Response {
	if quiet(quietPullActions, evt.Action) {
		return nil
	}
	actor := evt.Sender.Login
	var verb, suffix string
	switch evt.Action {
	case "opened", "reopened":
		verb = evt.Action + " pull request"
	case "closed":
		verb = "closed pull request"
		if evt.PullRequest.Merged {
			verb = "merged pull request"
		}
	case "ready_for_review":
		verb, suffix = "marked pull request", " as ready for review"
	case "converted_to_draft":
		verb, suffix = "converted pull request", " to draft"
	case "assigned", "unassigned":
		verb = assignmentVerb(evt.Action, actor, evt.Assignee) + " pull request"
	case "review_requested":
		switch {
		case evt.RequestedReviewer != nil && evt.RequestedReviewer.Login == actor:
			verb = "self-requested a review on pull request"
		case evt.RequestedReviewer != nil:
			verb = "requested a review from " + evt.RequestedReviewer.Login + " on pull request"
		case evt.RequestedTeam != nil:
			verb = "requested a review from team " + evt.RequestedTeam.Name + " on pull request"
		default:
			verb = "requested a review on pull request"
		}
	default:
		return s.unhandled(events.GitHubPullRequest, evt.Action)
	}
	b, hint := repoMessage(evt.Repository)
	fmt.Fprintf(b, "%s %s ", actor, verb)
	b.PrimaryLink(fmt.Sprintf("#%d", evt.PullRequest.Number), evt.PullRequest.HTMLURL)
	b.WriteText(suffix)
	writeTitle(b, evt.PullRequest.Title)
	return respond(b, hint)
}

func (s *Set) pullRequestReview(evt *events.PullRequestReviewEvent) *Response {
	var verb string
	switch evt.Action {
	case "submitted":
		switch strings.ToLower(evt.Review.State) {
		case "approved":
			verb = "approved"
		case "changes_requested":
			verb = "requested changes on"
		case "commented":
			verb = "reviewed"
		default:
			return s.unhandled(events.GitHubPullRequestReview, evt.Action+"/"+evt.Review.State)
		}
	case "dismissed":
		verb = "dismissed a review on"
	case "edited":
		return nil
	default:
		return s.unhandled(events.GitHubPullRequestReview, evt.Action)
	}
	b, hint := repoMessage(evt.Repository)
	fmt.Fprintf(b, "%s %s pull request ", evt.Sender.Login, verb)
	b.PrimaryLink(fmt.Sprintf("#%d", evt.PullRequest.Number), evt.Review.HTMLURL)
	if evt.Action == "submitted" {
		writeBody(b, evt.Review.Body)
	}
	return respond(b, hint)
}

func (s *Set) pullRequestReviewComment(evt *events.PullRequestReviewCommentEvent) *Response {
	if quiet(quietCommentActions, evt.Action) {
		return nil
	}
	if evt.Action != "created" {
		return s.unhandled(events.GitHubPullRequestReviewComment, evt.Action)
	}
	// Comments that are part of a review are announced with the review
	// itself. Only thread replies stand on their own.
	replying := evt.Comment.InReplyToID != nil
	if evt.Comment.PullRequestReviewID != nil && !replying {
		return nil
	}
	verb := "commented on"
	if replying {
		verb = "replied on"
	}
	b, hint := repoMessage(evt.Repository)
	fmt.Fprintf(b, "%s %s pull request ", evt.Sender.Login, verb)
	b.PrimaryLink(fmt.Sprintf("#%d", evt.PullRequest.Number), evt.Comment.HTMLURL)
	writeBody(b, evt.Comment.Body)
	return respond(b, hint)
}

func (s *Set) push(evt *events.PushEvent) *Response {
	// Tags are announced by the create event.
	branch, ok := strings.CutPrefix(evt.Ref, "refs/heads/")
	if !ok {
		return nil
	}
	actor := evt.Sender.Login
	b, hint := repoMessage(evt.Repository)
	switch {
	case evt.Deleted:
		fmt.Fprintf(b, "%s deleted branch %s", actor, branch)
		return respond(b, hint)
	case evt.Created && len(evt.Commits) == 0:
		fmt.Fprintf(b, "%s created branch ", actor)
		b.PrimaryLink(branch, evt.Repository.RefURL(branch))
		return respond(b, hint)
	}

	verb := "pushed"
	if evt.Forced {
		verb = "force-pushed"
	}
	fmt.Fprintf(b, "%s %s ", actor, verb)
	if len(evt.Commits) == 0 {
		b.WriteText("to ")
		b.PrimaryLink(branch, pushURL(evt, branch))
		return respond(b, hint)
	}
	count := "1 commit"
	if len(evt.Commits) > 1 {
		count = fmt.Sprintf("%d commits", len(evt.Commits))
	}
	b.PrimaryLink(count, pushURL(evt, branch))
	b.WriteText(" to ")
	b.Link(branch, evt.Repository.RefURL(branch))
	if len(evt.Commits) == 1 {
		writeBody(b, evt.Commits[0].Title())
	}
	return respond(b, hint)
}

// pushURL is the compare view, or the commit or branch when GitHub sent none.
func pushURL(evt *events.PushEvent, branch string) string {
	switch {
	case evt.Compare != "":
		return evt.Compare
	case len(evt.Commits) == 1:
		return evt.Commits[0].URL
	default:
		return evt.Repository.RefURL(branch)
	}
}

func (s *Set) repository(evt *events.RepositoryEvent) *Response {
	repo := evt.Repository
	actor := evt.Sender.Login
	b, hint := repoMessage(repo)
	suffix := ""
	switch evt.Action {
	case "created", "archived", "unarchived", "transferred":
		fmt.Fprintf(b, "%s %s repository ", actor, evt.Action)
	case "publicized", "privatized":
		fmt.Fprintf(b, "%s made repository ", actor)
		suffix = " public"
		if evt.Action == "privatized" {
			suffix = " private"
		}
	case "renamed":
		fmt.Fprintf(b, "%s renamed repository ", actor)
		if evt.Changes != nil && evt.Changes.Repository.Name.From != "" {
			fmt.Fprintf(b, "%s to ", evt.Changes.Repository.Name.From)
		}
	case "deleted":
		fmt.Fprintf(b, "%s deleted repository %s", actor, repo.FullName)
		return respond(b, hint)
	case "edited":
		return nil
	default:
		return s.unhandled(events.GitHubRepository, evt.Action)
	}
	b.PrimaryLink(repo.FullName, repo.HTMLURL)
	b.WriteText(suffix)
	return respond(b, hint)
}

func (s *Set) ping(evt *events.PingEvent) *Response {
	if evt.Repository == nil {
		b := msgbuilder.New()
		b.Tag("github", "")
		fmt.Fprintf(b, " ping from %s: %s", evt.Sender.Login, evt.Zen)
		return respond(b, nil)
	}
	b, hint := repoMessage(*evt.Repository)
	fmt.Fprintf(b, "webhook ping from %s: %s", evt.Sender.Login, evt.Zen)
	return respond(b, hint)
}

func (s *Set) membership(evt *events.MembershipEvent) *Response {
	var prep string
	switch evt.Action {
	case "added":
		prep = "to"
	case "removed":
		prep = "from"
	default:
		return s.unhandled(events.GitHubMembership, evt.Action)
	}
	b, hint := orgMessage(evt.Organization)
	fmt.Fprintf(b, "%s %s %s %s team ", evt.Sender.Login, evt.Action, evt.Member.Login, prep)
	if evt.Team.HTMLURL != "" {
		b.PrimaryLink(evt.Team.Name, evt.Team.HTMLURL)
	} else {
		b.WriteText(evt.Team.Name)
	}
	return respond(b, hint)
}

func (s *Set) organization(evt *events.OrganizationEvent) *Response {
	actor := evt.Sender.Login
	b, hint := orgMessage(evt.Organization)
	switch evt.Action {
	case "member_invited":
		invitee := "someone"
		role := ""
		switch {
		case evt.User != nil:
			invitee = evt.User.Login
		case evt.Invitation != nil && evt.Invitation.Login != "":
			invitee = evt.Invitation.Login
		case evt.Invitation != nil && evt.Invitation.Email != "":
			invitee = evt.Invitation.Email
		}
		if evt.Invitation != nil {
			role = evt.Invitation.Role
		}
		fmt.Fprintf(b, "%s invited %s to the organization", actor, invitee)
		writeRole(b, role)
	case "member_added":
		if evt.Membership == nil {
			return s.unhandled(events.GitHubOrganization, evt.Action)
		}
		member := evt.Membership.User.Login
		if member == actor {
			fmt.Fprintf(b, "%s joined the organization", member)
		} else {
			fmt.Fprintf(b, "%s added %s to the organization", actor, member)
		}
		writeRole(b, evt.Membership.Role)
	case "member_removed":
		if evt.Membership == nil {
			return s.unhandled(events.GitHubOrganization, evt.Action)
		}
		member := evt.Membership.User.Login
		if member == actor {
			fmt.Fprintf(b, "%s left the organization", member)
		} else {
			fmt.Fprintf(b, "%s removed %s from the organization", actor, member)
		}
	case "renamed", "deleted":
		fmt.Fprintf(b, "%s %s the organization", actor, evt.Action)
	default:
		return s.unhandled(events.GitHubOrganization, evt.Action)
	}
	return respond(b, hint)
}

func writeRole(b *msgbuilder.Builder, role string) {
	if role != "" && role != "direct_member" {
		fmt.Fprintf(b, " as %s", role)
	}
}
