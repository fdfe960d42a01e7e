// Package confirm is the operator confirmation channel gating destructive
// actions such as deleting unmanaged jobs.
//
// Auto answers without asking, for pre-authorized or scripted runs. Terminal
// prompts through readline and only treats "y" or "yes" as approval.
package confirm
