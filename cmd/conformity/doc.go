// Command conformity creates conformity envelopes against the backoffice.
//
// It runs the Temporal worker that executes headless envelope creation,
// starts such workflows from a job file, runs the wizard in-process for
// one job, and re-sends document status notifications.
package main
