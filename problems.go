package composer

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Renderer turns a Rule into a human-readable line. Rule itself stays a
// pure data structure; Problems is handed a Renderer instead of a Pool so
// rendering logic never leaks back into Rule or RuleSet.
type Renderer interface {
	Render(r *Rule) string
}

// poolRenderer is the default Renderer, backed by a Pool for literal
// pretty-printing.
type poolRenderer struct {
	pool *Pool
}

// NewRenderer returns the default Renderer, which resolves literals
// through pool.
func NewRenderer(pool *Pool) Renderer {
	return &poolRenderer{pool: pool}
}

func (r *poolRenderer) Render(rule *Rule) string {
	lits := rule.Literals()
	litList := func() string {
		parts := make([]string, len(lits))
		for i, l := range lits {
			parts[i] = r.pool.PrettyLiteral(l)
		}
		return strings.Join(parts, ", ")
	}

	switch rule.Reason() {
	case ReasonJobInstall:
		return fmt.Sprintf("Install command rule (%s)", litList())
	case ReasonJobRemove:
		return fmt.Sprintf("Remove command rule (%s)", litList())
	case ReasonPackageConflict:
		a, b := r.conflictPair(rule)
		return fmt.Sprintf("%s conflicts with %s.", a, b)
	case ReasonPackageRequires:
		return r.renderRequires(rule)
	case ReasonPackageSameName:
		return fmt.Sprintf("Can only install one of: %s", litList())
	case ReasonPackageObsoletes, ReasonInstalledPackageObsoletes, ReasonPackageImplicitObsoletes:
		a, b := r.conflictPair(rule)
		return fmt.Sprintf("%s conflicts with %s.", a, b)
	case ReasonPackageAlias:
		return fmt.Sprintf("Alias rule (%s)", litList())
	case ReasonLearned:
		return fmt.Sprintf("Conclusion: %s", litList())
	default:
		return fmt.Sprintf("(%s)", litList())
	}
}

func (r *poolRenderer) conflictPair(rule *Rule) (string, string) {
	lits := rule.Literals()
	if len(lits) != 2 {
		return "?", "?"
	}
	return r.pool.LiteralToPackage(lits[0].Negate()).String(), r.pool.LiteralToPackage(lits[1].Negate()).String()
}

func (r *poolRenderer) renderRequires(rule *Rule) string {
	link, _ := rule.ReasonData().(*Link)
	lits := rule.Literals()
	if len(lits) == 0 {
		return "Empty requires rule."
	}
	from := r.pool.LiteralToPackage(lits[0].Negate()).String()

	target := ""
	if link != nil {
		target = link.Target
	}

	if len(lits) == 1 {
		switch {
		case strings.HasPrefix(target, "ext-"):
			return fmt.Sprintf("%s requires %s -> the requested extension %s is missing or has the wrong version.", from, target, strings.TrimPrefix(target, "ext-"))
		case strings.HasPrefix(target, "lib-"):
			return fmt.Sprintf("%s requires %s -> the required library %s is not linked.", from, target, strings.TrimPrefix(target, "lib-"))
		default:
			return fmt.Sprintf("%s requires %s -> no matching package found.", from, target)
		}
	}

	var satisfiers []string
	for _, l := range lits[1:] {
		satisfiers = append(satisfiers, r.pool.LiteralToPackage(l).String())
	}
	return fmt.Sprintf("%s requires %s -> satisfiable by %s.", from, target, strings.Join(satisfiers, ", "))
}

// ProblemGroup collects the rules implicated by one originating job (or,
// with Job nil, every implicated rule that came from no job).
type ProblemGroup struct {
	Job   *Job
	Rules []*Rule
}

// Problems aggregates the unsatisfiability evidence conflict analysis
// produced, grouped by originating job where possible.
type Problems struct {
	Groups   []ProblemGroup
	renderer Renderer
}

// Error returns the aggregate as a *multierror.Error, one entry per
// rendered rule, so callers can range over .Errors for the individual
// causes - the shape a CLI layer expects from a failed solve. The solve
// error itself (an *UnsatisfiableError) unwraps to ErrUnsatisfiable, not
// to this aggregate.
func (p *Problems) Error() *multierror.Error {
	var merr *multierror.Error
	for _, g := range p.Groups {
		for _, r := range g.Rules {
			merr = multierror.Append(merr, fmt.Errorf("%s", p.renderer.Render(r)))
		}
	}
	return merr
}

func (p *Problems) String() string {
	var b strings.Builder
	for i, g := range p.Groups {
		if i > 0 {
			b.WriteString("\n")
		}
		if g.Job != nil {
			fmt.Fprintf(&b, "Problem %d (job: %s %s):\n", i+1, g.Job.Kind, g.Job.PackageName)
		} else {
			fmt.Fprintf(&b, "Problem %d:\n", i+1)
		}
		for _, r := range g.Rules {
			fmt.Fprintf(&b, "  - %s\n", p.renderer.Render(r))
		}
	}
	return b.String()
}

// buildProblems gathers the rules conflict analysis touched while
// deriving an empty learned clause (or, for a contradiction found before
// search, the empty clause, or the unit rule that failed together with the
// unit rule that asserted the opposite literal) and groups them by job.
func buildProblems(renderer Renderer, implicated []*Rule) *Problems {
	byJob := make(map[*Job][]*Rule)
	var order []*Job
	var jobless []*Rule

	for _, r := range implicated {
		if r.Job() != nil {
			if _, seen := byJob[r.Job()]; !seen {
				order = append(order, r.Job())
			}
			byJob[r.Job()] = append(byJob[r.Job()], r)
		} else {
			jobless = append(jobless, r)
		}
	}

	p := &Problems{renderer: renderer}
	for _, j := range order {
		p.Groups = append(p.Groups, ProblemGroup{Job: j, Rules: byJob[j]})
	}
	if len(jobless) > 0 {
		p.Groups = append(p.Groups, ProblemGroup{Rules: jobless})
	}
	return p
}
