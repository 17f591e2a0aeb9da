// Package dingctl is a developer client for a running dingd. It posts
// robot and mini-app callbacks shaped like the ones DingTalk sends, so a
// handler can be exercised without a real tenant.
package dingctl
