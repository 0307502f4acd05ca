// Code generated by dependgen — DO NOT EDIT.
package gatt_test

import "github.com/srgg/testify/depend"

var LifecycleTestSuiteTestRegistry = map[string]func(any){
	"TestWriteAuditTrail": func(s any) { s.(*LifecycleTestSuite).TestWriteAuditTrail() },
	"TestNotifyLifecycle": func(s any) { s.(*LifecycleTestSuite).TestNotifyLifecycle() },
	"TestDescriptorAudit": func(s any) { s.(*LifecycleTestSuite).TestDescriptorAudit() },
	"TestTrailDrainIsDestructive": func(s any) { s.(*LifecycleTestSuite).TestTrailDrainIsDestructive() },
}

var LifecycleTestSuiteTestOrder = []string{
	"TestWriteAuditTrail",
	"TestNotifyLifecycle",
	"TestDescriptorAudit",
	"TestTrailDrainIsDestructive",
}

var LifecycleTestSuiteDependencies = depend.Depends(func(s any) *depend.Dep {
	dep := new(depend.Dep)
	return dep
})

// GeneratedDependConfig returns the dependency configuration for LifecycleTestSuite.
// This method allows LifecycleTestSuite to be used with depend.RunSuite(t, suite).
// DO NOT implement this method manually - it is auto-generated.
func (s *LifecycleTestSuite) GeneratedDependConfig() *depend.SuiteConfig {
	return &depend.SuiteConfig{
		Registry: LifecycleTestSuiteTestRegistry,
		Order:    LifecycleTestSuiteTestOrder,
		Deps:     LifecycleTestSuiteDependencies,
	}
}
