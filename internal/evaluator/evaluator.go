// internal/evaluator/evaluator.go
package evaluator

// Evaluation is the judged outcome of a prompt.
type Evaluation struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

// Evaluator decides whether a prompt reproduces the target and what the AI
// "answered". Implementations must be safe for concurrent use.
type Evaluator interface {
	Evaluate(prompt, target string) Evaluation
}

// Func adapts a plain function to the Evaluator interface.
type Func func(prompt, target string) Evaluation

func (f Func) Evaluate(prompt, target string) Evaluation {
	return f(prompt, target)
}
