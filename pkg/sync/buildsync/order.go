package buildsync

import (
	"sort"

	"k8s.io/klog"

	buildv1 "github.com/openshift/api/build/v1"

	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/buildutil"
	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/client"
)

// sortBuildsByNumber stable-sorts builds by their build number
// annotation, ascending. A build with a missing or unparsable
// annotation compares equal to everything, so it keeps its relative
// position; changing that to a total order would alter run policy
// outcomes for configs with malformed builds. Each malformed build is
// logged once per call, not once per comparison.
func sortBuildsByNumber(builds []*buildv1.Build) {
	type numberedBuild struct {
		build  *buildv1.Build
		number int64
		valid  bool
	}
	numbered := make([]numberedBuild, len(builds))
	for i, build := range builds {
		num, err := buildutil.BuildNumber(build)
		if err != nil {
			klog.Warningf("cannot order build %s/%s: %v", build.Namespace, build.Name, err)
			numbered[i] = numberedBuild{build: build}
			continue
		}
		numbered[i] = numberedBuild{build: build, number: num, valid: true}
	}
	sort.SliceStable(numbered, func(i, j int) bool {
		if !numbered[i].valid || !numbered[j].valid {
			return false
		}
		return numbered[i].number < numbered[j].number
	})
	for i := range numbered {
		builds[i] = numbered[i].build
	}
}

// configBuilds is the ordered builds of a single build config.
type configBuilds struct {
	config *buildv1.BuildConfig
	builds []*buildv1.Build
}

// groupBuildsByConfig resolves each build's owning config with a point
// lookup, memoized per call, and groups the builds under it. Builds that
// are not pipeline builds, declare no config name, or whose config
// cannot be found are skipped; a config that is not there on a direct
// get is not going to be, and manual creation of pipeline builds is not
// handled. Input order is preserved within each group, so sorted input
// yields sorted groups.
func groupBuildsByConfig(builds []*buildv1.Build, getter client.BuildConfigGetter) []*configBuilds {
	configs := make(map[string]*configBuilds)
	var groups []*configBuilds
	for _, build := range builds {
		if !buildutil.IsPipelineStrategyBuild(build) {
			continue
		}
		configName := buildutil.ConfigNameForBuild(build)
		if len(configName) == 0 {
			continue
		}
		key := build.Namespace + "/" + configName
		group, exists := configs[key]
		if !exists {
			bc, err := getter.Get(build.Namespace, configName)
			if err != nil || bc == nil {
				klog.V(4).Infof("no build config %s for build %s/%s: %v", configName, build.Namespace, build.Name, err)
				configs[key] = nil
				continue
			}
			group = &configBuilds{config: bc}
			configs[key] = group
			groups = append(groups, group)
		}
		if group == nil {
			continue
		}
		group.builds = append(group.builds, build)
	}
	return groups
}
