// Package bootstrap wires repositories and application services for the
// server and the console commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	appattachment "github.com/partdb/backend/internal/application/attachment"
	"github.com/partdb/backend/internal/application/dataio"
	appidentity "github.com/partdb/backend/internal/application/identity"
	"github.com/partdb/backend/internal/application/infoprovider"
	applabels "github.com/partdb/backend/internal/application/labels"
	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/application/tools"
	"github.com/partdb/backend/internal/domain/attachment"
	"github.com/partdb/backend/internal/domain/identity"
	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
	"github.com/partdb/backend/internal/domain/shared"
	"github.com/partdb/backend/internal/infrastructure/auth"
	"github.com/partdb/backend/internal/infrastructure/cache"
	"github.com/partdb/backend/internal/infrastructure/config"
	infraprov "github.com/partdb/backend/internal/infrastructure/infoprovider"
	"github.com/partdb/backend/internal/infrastructure/persistence"
	"github.com/partdb/backend/internal/infrastructure/printing"
	"github.com/partdb/backend/internal/infrastructure/storage"
)

// Options are the collaborators created by the caller
type Options struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *persistence.Database
	// Publisher receives committed log entries and element changes, may be nil
	Publisher shared.EventPublisher
	// Metrics counts log entries, undos and stock operations, may be nil
	Metrics interface {
		applog.Metrics
		appparts.StockMetrics
	}
	// Lightweight skips the object storage, the PDF renderer and the info
	// providers, for console commands that never touch them
	Lightweight bool
}

// Services holds the wired application services
type Services struct {
	Logs       *persistence.GormLogEntryRepository
	Recorder   *applog.Recorder
	Tracker    *applog.Tracker
	TimeTravel *applog.TimeTravel
	LogService *applog.LogService
	Undo       *applog.UndoService

	Cache         cache.TagCache
	Kinds         appparts.Kinds
	Categories    *appparts.StructuralService[parts.Category, *parts.Category]
	Locations     *appparts.StructuralService[parts.StorageLocation, *parts.StorageLocation]
	Footprints    *appparts.StructuralService[parts.Footprint, *parts.Footprint]
	Manufacturers *appparts.StructuralService[parts.Manufacturer, *parts.Manufacturer]
	Suppliers     *appparts.StructuralService[parts.Supplier, *parts.Supplier]
	Units         *appparts.StructuralService[parts.MeasurementUnit, *parts.MeasurementUnit]
	Currencies    *appparts.StructuralService[pricing.Currency, *pricing.Currency]
	Lots          *appparts.LotService
	Parts         *appparts.PartService
	Orderdetails  *appparts.OrderdetailService

	JWT         *auth.JWTService
	Blacklist   auth.TokenBlacklist
	Users       *appidentity.UserService
	Groups      *appidentity.GroupService
	Permissions *appidentity.PermissionService
	Auth        *appidentity.AuthService
	Installer   *appidentity.Installer

	Exporter      *dataio.Exporter
	Importer      *dataio.Importer
	Attachments   *appattachment.Service
	Labels        *applabels.Service
	InfoProviders *infoprovider.Service
	Providers     *infoprovider.Registry
	Statistics    *tools.StatisticsService
	ServerInfo    *tools.ServerInfoService

	closers []func() error
}

// Build creates all services on opts.DB
func Build(ctx context.Context, opts Options) (*Services, error) {
	cfg, log := opts.Config, opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	db := opts.DB.DB
	s := &Services{}

	tagCache, err := cache.NewFactory(cfg.Cache, cfg.Redis, cache.WithLogger(log)).Create()
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	s.Cache = tagCache
	s.closers = append(s.closers, tagCache.Close)

	// log system
	settings, err := applog.SettingsFromConfig(cfg.Audit)
	if err != nil {
		return nil, err
	}
	comments, err := logsystem.NewEventCommentNeededHelper(cfg.Audit.EnforceComments)
	if err != nil {
		return nil, err
	}
	recorderOpts := []applog.RecorderOption{applog.WithLogger(log)}
	if opts.Publisher != nil {
		recorderOpts = append(recorderOpts, applog.WithPublisher(opts.Publisher))
	}
	var stockMetrics appparts.StockMetrics
	if opts.Metrics != nil {
		recorderOpts = append(recorderOpts, applog.WithMetrics(opts.Metrics))
		stockMetrics = opts.Metrics
	}
	s.Logs = persistence.NewGormLogEntryRepository(db)
	store := persistence.NewGormElementStore(db)
	s.Recorder = applog.NewRecorder(s.Logs, settings, recorderOpts...)
	s.Tracker = applog.NewTracker(store, s.Recorder, persistence.NewGormTransactionManager(db), opts.Publisher)
	s.TimeTravel = applog.NewTimeTravel(store, s.Logs)
	s.LogService = applog.NewLogService(s.Logs, s.TimeTravel)

	deps := appparts.Deps{
		Tracker:  s.Tracker,
		Comments: comments,
		Cache:    tagCache,
		CacheTTL: cfg.Cache.TTL,
		Logger:   log,
	}

	// repositories
	partRepo := persistence.NewGormPartRepository(db)
	lotRepo := persistence.NewGormPartLotRepository(db)
	odRepo := persistence.NewGormOrderdetailRepository(db)
	pdRepo := persistence.NewGormPricedetailRepository(db)
	categoryRepo := persistence.NewGormStructuralRepository[parts.Category](db)
	locationRepo := persistence.NewGormStructuralRepository[parts.StorageLocation](db)
	unitRepo := persistence.NewGormStructuralRepository[parts.MeasurementUnit](db)
	currencyRepo := persistence.NewGormStructuralRepository[pricing.Currency](db)
	attachmentTypeRepo := persistence.NewGormStructuralRepository[attachment.AttachmentType](db)
	attachmentRepo := persistence.NewGormAttachmentRepository(db)
	userRepo := persistence.NewGormUserRepository(db)
	groupRepo := persistence.NewGormGroupRepository(db)

	partsUsing := func(column string) appparts.UsageCounter {
		return func(ctx context.Context, id uint) (int64, error) {
			return partRepo.CountByReference(ctx, column, id)
		}
	}

	// structural elements
	s.Categories = appparts.NewStructuralService[parts.Category](categoryRepo, deps).
		WithUsageCheck("parts", partsUsing("category_id"))
	s.Locations = appparts.NewStructuralService[parts.StorageLocation](locationRepo, deps).
		WithUsageCheck("part lots", lotRepo.CountByLocation)
	s.Footprints = appparts.NewStructuralService[parts.Footprint](persistence.NewGormStructuralRepository[parts.Footprint](db), deps).
		WithUsageCheck("parts", partsUsing("footprint_id"))
	s.Manufacturers = appparts.NewStructuralService[parts.Manufacturer](persistence.NewGormStructuralRepository[parts.Manufacturer](db), deps).
		WithUsageCheck("parts", partsUsing("manufacturer_id"))
	s.Suppliers = appparts.NewStructuralService[parts.Supplier](persistence.NewGormStructuralRepository[parts.Supplier](db), deps).
		WithUsageCheck("orderdetails", odRepo.CountBySupplier)
	s.Units = appparts.NewStructuralService[parts.MeasurementUnit](unitRepo, deps).
		WithUsageCheck("parts", partsUsing("part_unit_id"))
	s.Currencies = appparts.NewStructuralService[pricing.Currency](currencyRepo, deps).
		WithUsageCheck("pricedetails", pdRepo.CountByCurrency)
	attachmentTypes := appparts.NewStructuralService[attachment.AttachmentType](attachmentTypeRepo, deps).
		WithUsageCheck("attachments", attachmentRepo.CountByType)
	s.Groups = appidentity.NewGroupService(groupRepo, userRepo, deps)
	s.Kinds = appparts.NewKinds(
		s.Categories.Erased(),
		s.Locations.Erased(),
		s.Footprints.Erased(),
		s.Manufacturers.Erased(),
		s.Suppliers.Erased(),
		s.Units.Erased(),
		s.Currencies.Erased(),
		attachmentTypes.Erased(),
		s.Groups.Erased(),
	)

	// parts and stock
	s.Lots = appparts.NewLotService(partRepo, lotRepo, locationRepo, unitRepo, stockMetrics, deps)
	s.Parts = appparts.NewPartService(partRepo, lotRepo, categoryRepo, odRepo, currencyRepo, s.Lots, deps)
	s.Orderdetails = appparts.NewOrderdetailService(partRepo, odRepo, pdRepo, deps)

	// identity
	schema, err := appidentity.PermissionSchema()
	if err != nil {
		return nil, err
	}
	gen, err := identity.NewBackupCodeGenerator(cfg.Security.BackupCodeLength, cfg.Security.BackupCodeCount)
	if err != nil {
		return nil, err
	}
	s.JWT = auth.NewJWTService(cfg.JWT)
	s.Blacklist = auth.NewTokenBlacklist(cfg.Cache, cfg.Redis, log)
	s.Permissions = appidentity.NewPermissionService(userRepo, groupRepo, identity.NewPermissionResolver(schema),
		s.Tracker, tagCache, cfg.Cache.TTL, log)
	s.Auth = appidentity.NewAuthService(userRepo, s.Permissions, s.JWT, s.Blacklist,
		identity.NewBackupCodeManager(gen), s.Tracker,
		appidentity.NewLoginThrottle(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow),
		appidentity.AuthServiceConfig{TOTPIssuer: cfg.Security.TOTPIssuer}, log)
	s.Users = appidentity.NewUserService(userRepo, groupRepo, s.Tracker, log)
	s.Installer = appidentity.NewInstaller(userRepo, groupRepo, schema, log)
	s.Undo = applog.NewUndoService(s.Logs, s.Tracker, s.TimeTravel, s.Permissions, log)

	// import, export, tools
	s.Exporter = dataio.NewExporter(s.Kinds, s.Parts, log)
	s.Importer = dataio.NewImporter(s.Kinds, s.Parts, s.Tracker, log)
	s.Statistics = tools.NewStatisticsService(persistence.NewGormStatisticsRepository(db))

	if !opts.Lightweight {
		if err := s.buildOutbound(ctx, cfg, log, db, partRepo, attachmentRepo, attachmentTypeRepo, store); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	s.ServerInfo = tools.NewServerInfoService(tools.ServerInfoConfig{
		Version:        cfg.App.Version,
		Environment:    cfg.App.Env,
		Debug:          cfg.App.IsDebug(),
		DatabaseDriver: opts.DB.Driver,
		MailDSN:        cfg.Mail.DSN,
		StorageBackend: cfg.Storage.Backend,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		InfoProviders:  s.activeProviders,
	})
	return s, nil
}

// buildOutbound creates the services that talk to storage, the browser or
// the distributors
func (s *Services) buildOutbound(
	ctx context.Context,
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	partRepo parts.PartRepository,
	attachmentRepo attachment.AttachmentRepository,
	attachmentTypeRepo shared.StructuralRepository[attachment.AttachmentType],
	store logsystem.ElementStore,
) error {
	objects, err := storage.NewObjectStorage(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("create object storage: %w", err)
	}
	s.Attachments = appattachment.NewService(attachmentRepo, attachmentTypeRepo, objects, s.Tracker, s.Permissions,
		appattachment.ServiceConfig{
			MaxUploadSize:     cfg.Storage.MaxUploadSize,
			DownloadURLExpiry: cfg.Storage.PresignExpiry,
		}, log)

	renderer, err := printing.NewRenderer(cfg.Labels, log)
	if err != nil {
		return fmt.Errorf("create label renderer: %w", err)
	}
	s.closers = append(s.closers, renderer.Close)
	replacer := applabels.NewReplacer(store, cfg.App.InstanceName, time.Now)
	s.Labels = applabels.NewService(persistence.NewGormLabelProfileRepository(db), s.Tracker, replacer, renderer, log)

	lcscCfg := infraprov.NewLCSCConfig(cfg.InfoProviders.LCSCEnabled)
	if cfg.InfoProviders.LCSCBaseURL != "" {
		lcscCfg.APIBaseURL = cfg.InfoProviders.LCSCBaseURL
	}
	lcscCfg.Currency = cfg.InfoProviders.LCSCCurrency
	lcscCfg.Timeout = cfg.InfoProviders.Timeout
	lcsc, err := infraprov.NewLCSCProvider(lcscCfg, log)
	if err != nil {
		return fmt.Errorf("create lcsc provider: %w", err)
	}
	s.Providers, err = infoprovider.NewRegistry(infraprov.NewTestProvider(cfg.InfoProviders.TestEnabled), lcsc)
	if err != nil {
		return err
	}
	retriever := infoprovider.NewPartInfoRetriever(s.Providers, s.Cache, cfg.InfoProviders.CacheTTL, log)
	s.InfoProviders = infoprovider.NewService(retriever, partRepo, s.Parts, s.Orderdetails, s.Kinds, s.Tracker,
		cfg.InfoProviders.LCSCCurrency, log)
	return nil
}

func (s *Services) activeProviders() []string {
	if s.Providers == nil {
		return nil
	}
	var keys []string
	for _, p := range s.Providers.Active() {
		keys = append(keys, p.Key())
	}
	return keys
}

// Close releases the cache and the renderer
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
