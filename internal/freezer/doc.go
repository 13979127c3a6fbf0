// Package freezer invokes the Python packaging tool against a sample and
// locates the frozen executable it produced.
//
// The packaging tool is always an external command (the sample's setup.py
// driven by the environment's interpreter); this package never links or
// emulates it. Build failures and missing build output both map to
// model.ExitBuildFailed, since from the harness's point of view they are
// the same event: there is nothing to run.
package freezer
