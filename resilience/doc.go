// Package resilience wraps calls to external engines with retry and
// circuit breaking.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("tesseract"))
//	out, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (string, error) {
//	    var text string
//	    err := cb.Execute(func() error {
//	        var runErr error
//	        text, runErr = run(ctx)
//	        return runErr
//	    })
//	    return text, err
//	})
package resilience
