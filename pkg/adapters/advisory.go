package adapters

import (
	"github.com/clinic-tools/advisory-engine/pkg/models/api"
	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/models/store"
)

func MapDomainReportToStore(report domain.AdvisoryReport) store.AdvisoryReport {
	sections := make([]store.Section, 0, len(report.Sections))
	for _, s := range report.Sections {
		sections = append(sections, store.Section{
			Title:   s.Title,
			Content: s.Content,
			Type:    string(s.Type),
		})
	}
	return store.AdvisoryReport{
		ID:            report.ID,
		ClinicID:      report.ClinicID,
		TriggerType:   string(report.TriggerType),
		ResponseCount: report.ResponseCount,
		Sections:      sections,
		Summary:       report.Summary,
		Priority:      report.Priority,
		GeneratedAt:   report.GeneratedAt,
	}
}

func MapStoreReportToDomain(record store.AdvisoryReport) domain.AdvisoryReport {
	sections := make([]domain.AdvisorySection, 0, len(record.Sections))
	for _, s := range record.Sections {
		sections = append(sections, domain.AdvisorySection{
			Title:   s.Title,
			Content: s.Content,
			Type:    domain.SectionType(s.Type),
		})
	}
	return domain.AdvisoryReport{
		ID:            record.ID,
		ClinicID:      record.ClinicID,
		TriggerType:   domain.TriggerType(record.TriggerType),
		ResponseCount: record.ResponseCount,
		Sections:      sections,
		Summary:       record.Summary,
		Priority:      record.Priority,
		GeneratedAt:   record.GeneratedAt,
	}
}

func MapDomainReportToApi(report domain.AdvisoryReport) api.AdvisoryReport {
	sections := make([]api.AdvisorySection, 0, len(report.Sections))
	for _, s := range report.Sections {
		sections = append(sections, api.AdvisorySection{
			Title:   s.Title,
			Content: s.Content,
			Type:    string(s.Type),
		})
	}
	return api.AdvisoryReport{
		Id:            report.ID,
		ClinicId:      report.ClinicID,
		TriggerType:   string(report.TriggerType),
		ResponseCount: report.ResponseCount,
		Sections:      sections,
		Summary:       report.Summary,
		Priority:      report.Priority,
		GeneratedAt:   report.GeneratedAt,
	}
}

func MapDomainProgressToApi(progress domain.AdvisoryProgress) api.AdvisoryProgress {
	out := api.AdvisoryProgress{
		Current:             progress.Current,
		Threshold:           progress.Threshold,
		Percentage:          progress.Percentage,
		TotalResponses:      progress.TotalResponses,
		CanGenerate:         progress.CanGenerate,
		DaysSinceLastReport: progress.DaysSinceLastReport,
	}
	if progress.LastReport != nil {
		rep := MapDomainReportToApi(*progress.LastReport)
		out.LastReport = &rep
	}
	return out
}

func MapStoreStateToDomain(record store.AdvisoryState) domain.AdvisoryState {
	return domain.AdvisoryState{
		ClinicID:           record.ClinicID,
		ResponsesSinceLast: record.ResponsesSinceLast,
		Threshold:          record.Threshold,
		TotalResponses:     record.TotalResponses,
		LastGeneratedAt:    record.LastGeneratedAt,
	}
}
