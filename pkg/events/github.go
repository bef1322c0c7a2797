// Copyright 2024-2026 Aiku AI

package events

import "strings"

// GitHub event type names, as sent in the X-GitHub-Event header.
const (
	GitHubCommitComment            = "commit_comment"
	GitHubCreate                   = "create"
	GitHubFork                     = "fork"
	GitHubIssueComment             = "issue_comment"
	GitHubIssues                   = "issues"
	GitHubMembership               = "membership"
	GitHubOrganization             = "organization"
	GitHubPing                     = "ping"
	GitHubPullRequest              = "pull_request"
	GitHubPullRequestReview        = "pull_request_review"
	GitHubPullRequestReviewComment = "pull_request_review_comment"
	GitHubPush                     = "push"
	GitHubRepository               = "repository"
)

// ParseGitHub decodes a GitHub webhook body. kind is the X-GitHub-Event
// header value.
func ParseGitHub(kind string, body []byte) (Event, error) {
	switch kind {
	case GitHubCommitComment:
		return parse[CommitCommentEvent](SourceGitHub, kind, body)
	case GitHubCreate:
		return parse[CreateEvent](SourceGitHub, kind, body)
	case GitHubFork:
		return parse[ForkEvent](SourceGitHub, kind, body)
	case GitHubIssueComment:
		return parse[IssueCommentEvent](SourceGitHub, kind, body)
	case GitHubIssues:
		return parse[IssuesEvent](SourceGitHub, kind, body)
	case GitHubMembership:
		return parse[MembershipEvent](SourceGitHub, kind, body)
	case GitHubOrganization:
		return parse[OrganizationEvent](SourceGitHub, kind, body)
	case GitHubPing:
		return parse[PingEvent](SourceGitHub, kind, body)
	case GitHubPullRequest:
		return parse[PullRequestEvent](SourceGitHub, kind, body)
	case GitHubPullRequestReview:
		return parse[PullRequestReviewEvent](SourceGitHub, kind, body)
	case GitHubPullRequestReviewComment:
		return parse[PullRequestReviewCommentEvent](SourceGitHub, kind, body)
	case GitHubPush:
		return parse[PushEvent](SourceGitHub, kind, body)
	case GitHubRepository:
		return parse[RepositoryEvent](SourceGitHub, kind, body)
	default:
		return nil, ErrUnknownType
	}
}

type githubEvent struct{}

func (githubEvent) Source() Source { return SourceGitHub }
func (githubEvent) isEvent()       {}

// User is a GitHub account.
type User struct {
	Login   string `json:"login" validate:"required"`
	HTMLURL string `json:"html_url"`
}

// Repository is the repository an event happened in.
type Repository struct {
	Name     string `json:"name" validate:"required"`
	FullName string `json:"full_name" validate:"required"`
	HTMLURL  string `json:"html_url" validate:"required,url"`
}

// RefURL links to the tree of a branch or tag.
func (r Repository) RefURL(ref string) string {
	return r.HTMLURL + "/tree/" + ref
}

// Org is the organization block attached to organization-scoped events.
type Org struct {
	Login string `json:"login" validate:"required"`
}

type Issue struct {
	Number  int    `json:"number" validate:"required"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url" validate:"required,url"`
	// PullRequest is set when the issue is a pull request.
	PullRequest *struct {
		HTMLURL string `json:"html_url"`
	} `json:"pull_request"`
}

// IsPullRequest reports whether comments on this issue are pull request
// comments.
func (i Issue) IsPullRequest() bool {
	return i.PullRequest != nil
}

type PullRequest struct {
	Number  int    `json:"number" validate:"required"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url" validate:"required,url"`
	Merged  bool   `json:"merged"`
}

type Comment struct {
	ID                  int64  `json:"id"`
	HTMLURL             string `json:"html_url" validate:"required,url"`
	Body                string `json:"body"`
	CommitID            string `json:"commit_id"`
	PullRequestReviewID *int64 `json:"pull_request_review_id"`
	InReplyToID         *int64 `json:"in_reply_to_id"`
}

type Team struct {
	Name    string `json:"name" validate:"required"`
	HTMLURL string `json:"html_url"`
}

type Label struct {
	Name string `json:"name"`
}

type Review struct {
	State   string `json:"state" validate:"required"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url" validate:"required,url"`
}

type Commit struct {
	ID       string `json:"id" validate:"required"`
	URL      string `json:"url" validate:"required,url"`
	Distinct bool   `json:"distinct"`
	Message  string `json:"message"`
}

// Title is the first line of the commit message.
func (c Commit) Title() string {
	title, _, _ := strings.Cut(c.Message, "\n")
	return title
}

// ChangedFrom holds the previous value of an edited field.
type ChangedFrom struct {
	From string `json:"from"`
}

type CommitCommentEvent struct {
	githubEvent
	Action     string     `json:"action"`
	Repository Repository `json:"repository"`
	Sender     User       `json:"sender"`
	Comment    Comment    `json:"comment"`
}

type CreateEvent struct {
	githubEvent
	Ref        string     `json:"ref" validate:"required"`
	RefType    string     `json:"ref_type" validate:"required,oneof=branch tag"`
	Repository Repository `json:"repository"`
	Sender     User       `json:"sender"`
}

type ForkEvent struct {
	githubEvent
	Forkee     Repository `json:"forkee"`
	Repository Repository `json:"repository"`
	Sender     User       `json:"sender"`
}

type IssueCommentEvent struct {
	githubEvent
	Action     string     `json:"action" validate:"required"`
	Repository Repository `json:"repository"`
	Sender     User       `json:"sender"`
	Issue      Issue      `json:"issue"`
	Comment    Comment    `json:"comment"`
}

type IssuesEvent struct {
	githubEvent
	Action     string        `json:"action" validate:"required"`
	Repository Repository    `json:"repository"`
	Sender     User          `json:"sender"`
	Issue      Issue         `json:"issue"`
	Assignee   *User         `json:"assignee"`
	Label      *Label        `json:"label"`
	Changes    *IssueChanges `json:"changes"`
}

type IssueChanges struct {
	Title *ChangedFrom `json:"title"`
	Body  *ChangedFrom `json:"body"`
}

type MembershipEvent struct {
	githubEvent
	Action       string `json:"action" validate:"required"`
	Member       User   `json:"member"`
	Team         Team   `json:"team"`
	Sender       User   `json:"sender"`
	Organization Org    `json:"organization"`
}

type OrganizationEvent struct {
	githubEvent
	Action       string `json:"action" validate:"required"`
	Sender       User   `json:"sender"`
	Organization Org    `json:"organization"`
	// Invitation and User are set for member_invited.
	Invitation *OrgInvitation `json:"invitation"`
	User       *User          `json:"user"`
	// Set for member_added and member_removed.
	Membership *OrgMembership `json:"membership"`
}

type OrgInvitation struct {
	Login string `json:"login"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type OrgMembership struct {
	Role string `json:"role"`
	User User   `json:"user"`
}

type PingEvent struct {
	githubEvent
	Zen        string      `json:"zen" validate:"required"`
	HookID     int64       `json:"hook_id"`
	Repository *Repository `json:"repository"`
	Sender     User        `json:"sender"`
}

type PullRequestEvent struct {
	githubEvent
	Action            string      `json:"action" validate:"required"`
	Repository        Repository  `json:"repository"`
	Sender            User        `json:"sender"`
	PullRequest       PullRequest `json:"pull_request"`
	Assignee          *User       `json:"assignee"`
	RequestedReviewer *User       `json:"requested_reviewer"`
	RequestedTeam     *Team       `json:"requested_team"`
}

type PullRequestReviewEvent struct {
	githubEvent
	Action      string      `json:"action" validate:"required"`
	Repository  Repository  `json:"repository"`
	Sender      User        `json:"sender"`
	PullRequest PullRequest `json:"pull_request"`
	Review      Review      `json:"review"`
}

type PullRequestReviewCommentEvent struct {
	githubEvent
	Action      string      `json:"action" validate:"required"`
	Repository  Repository  `json:"repository"`
	Sender      User        `json:"sender"`
	PullRequest PullRequest `json:"pull_request"`
	Comment     Comment     `json:"comment"`
}

type PushEvent struct {
	githubEvent
	Ref        string     `json:"ref" validate:"required"`
	Repository Repository `json:"repository"`
	Sender     User       `json:"sender"`
	Commits    []Commit   `json:"commits" validate:"dive"`
	HeadCommit *Commit    `json:"head_commit"`
	Forced     bool       `json:"forced"`
	Created    bool       `json:"created"`
	Deleted    bool       `json:"deleted"`
	Compare    string     `json:"compare"`
}

type RepositoryEvent struct {
	githubEvent
	Action     string             `json:"action" validate:"required"`
	Repository Repository         `json:"repository"`
	Sender     User               `json:"sender"`
	Changes    *RepositoryChanges `json:"changes"`
}

type RepositoryChanges struct {
	Repository struct {
		Name ChangedFrom `json:"name"`
	} `json:"repository"`
}
