package review

import "github.com/dshills/sherpa/internal/llm"

// The four built-in review perspectives.
var (
	architectPerspective = perspective{
		name:        "architect",
		description: "Design, structure, coupling, and API shape",
		template:    "review/architect",
		area:        "architecture",
		heading:     "Architecture review",
		labels:      [3]string{"design flaws", "design concerns", "design suggestions"},
	}
	securityPerspective = perspective{
		name:        "security",
		description: "Vulnerabilities, secrets, input validation, and data exposure",
		template:    "review/security",
		area:        "security",
		heading:     "Security review",
		labels:      [3]string{"vulnerabilities", "security risks", "hardening suggestions"},
	}
	performancePerspective = perspective{
		name:        "performance",
		description: "Complexity, I/O patterns, memory use, and concurrency costs",
		template:    "review/performance",
		area:        "performance",
		heading:     "Performance review",
		labels:      [3]string{"critical performance issues", "performance warnings", "optimization suggestions"},
	}
	juniorPerspective = perspective{
		name:        "junior",
		description: "Readability, naming, documentation, and conventions",
		template:    "review/junior",
		area:        "readability and code quality",
		heading:     "Readability review",
		labels:      [3]string{"required fixes", "recommended fixes", "improvement ideas"},
	}
)

func newAgent(p perspective) Factory {
	return func(c llm.Client) Agent {
		return &llmAgent{perspective: p, client: c}
	}
}
