package policy

// Context is the transient, per-request attribute bag predicates evaluate
// against. It is built by the middleware adapter from path, query and body
// fields, read-only during evaluation, and discarded afterwards.
type Context struct {
	// TargetSubjectID is the subject the request acts on (own-data checks).
	TargetSubjectID string
	// TargetDiscipline scopes same-discipline checks.
	TargetDiscipline string
	// OwnerID is the creator of the target resource.
	OwnerID string
	// Collaborators and Reviewers capture assignment relationships.
	Collaborators []string
	Reviewers     []string
}
