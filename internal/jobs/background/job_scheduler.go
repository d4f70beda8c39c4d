package background

import (
	"context"
	"log"
	"strings"
	"time"

	"medidor/internal/repositories"
	"medidor/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// orphanMinAge keeps the sweep away from objects whose database row may
// still be on its way in (an upload in flight between the object write
// and the row insert).
const orphanMinAge = 24 * time.Hour

// JobScheduler runs the periodic maintenance jobs: keeping the admin
// stats cache warm and sweeping storage objects whose rows are gone.
type JobScheduler struct {
	scheduler    gocron.Scheduler
	statsService services.StatsService
	imageRepo    repositories.ImageRepository
	storage      services.StorageService
	imagesBucket string
}

func NewJobScheduler(statsService services.StatsService, imageRepo repositories.ImageRepository, storage services.StorageService, imagesBucket string) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:    scheduler,
		statsService: statsService,
		imageRepo:    imageRepo,
		storage:      storage,
		imagesBucket: imagesBucket,
	}

	if err := js.registerJobs(); err != nil {
		return nil, err
	}
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	_, err := js.scheduler.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(js.refreshStats, context.Background()),
		gocron.WithName("stats-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	_, err = js.scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(js.sweepOrphanedObjects, context.Background()),
		gocron.WithName("storage-orphan-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

func (js *JobScheduler) refreshStats(ctx context.Context) {
	if err := js.statsService.Refresh(ctx); err != nil {
		log.Printf("Stats refresh failed: %v", err)
	}
}

// sweepOrphanedObjects removes bucket objects with no images row.
// Image deletion removes the object before the row, so a crash between
// the two leaves orphans; this job picks them up. Avatars live under
// their own prefix and are referenced from profiles, so they are
// skipped.
func (js *JobScheduler) sweepOrphanedObjects(ctx context.Context) {
	known, err := js.imageRepo.ListStoragePaths(ctx)
	if err != nil {
		log.Printf("Orphan sweep: failed to list image rows: %v", err)
		return
	}

	objects, err := js.storage.ListObjects(ctx, js.imagesBucket, "")
	if err != nil {
		log.Printf("Orphan sweep: failed to list bucket objects: %v", err)
		return
	}

	cutoff := time.Now().Add(-orphanMinAge)
	removed := 0
	for _, obj := range objects {
		if strings.HasPrefix(obj.Key, "avatars/") {
			continue
		}
		if _, ok := known[obj.Key]; ok {
			continue
		}
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := js.storage.Delete(ctx, js.imagesBucket, obj.Key); err != nil {
			log.Printf("Orphan sweep: failed to remove %s: %v", obj.Key, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("Orphan sweep removed %d objects", removed)
	}
}
