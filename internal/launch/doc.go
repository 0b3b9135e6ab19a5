// Package launch recognizes application launches in ActivityManager log lines.
//
// A line is a launch candidate when it records an activity start for the
// MAIN action and carries no extras. Candidates are then qualified by their
// intent flags and target component:
//
//	res := launch.Qualify(line)
//	switch res.Outcome {
//	case launch.CandidateQualified:
//		// count res.Component.Package
//	case launch.CandidateIgnored:
//		// refresh only, see res.Reason
//	}
//
// Token grammar is fixed by the log format: flags appear as flg=0x... or
// flags=0x..., the component as cmp=<package>/<process>.
package launch
