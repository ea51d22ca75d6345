// Package provider holds swappable backends behind a single gate.
//
// A Locator maps each backend Kind of one capability to a Factory. An
// Orchestrator owns exactly one active backend created through the locator,
// runs every operation against it under a weighted semaphore, and replaces
// it in place on SwitchTo. The outgoing backend is closed before the new one
// is created.
//
// Backends that need warm-up implement Loadable. LoadGate gives them (and
// the orchestrator) an idempotent load: concurrent callers converge on one
// in-flight load and share its result, and a failed or cancelled load can be
// retried.
//
// # Usage
//
//	loc := provider.NewLocator[ocr.Service, ocr.Kind]("ocr")
//	loc.Register(ocr.Tesseract, newTesseract)
//
//	o, err := provider.NewOrchestrator(provider.OrchestratorConfig[ocr.Service, ocr.Kind]{
//	    Capability: "ocr",
//	    Locator:    loc,
//	    Default:    ocr.Tesseract,
//	    Reporter:   provider.NewLogReporter(log),
//	})
//	res, err := provider.Call(ctx, o, func(ctx context.Context, s ocr.Service) (*ocr.Result, error) {
//	    return s.ExtractText(ctx, img, opts)
//	})
package provider
