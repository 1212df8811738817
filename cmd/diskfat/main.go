package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/arourr/diskfat"
	"github.com/arourr/diskfat/disks"
	"github.com/arourr/diskfat/fat"
	"github.com/arourr/diskfat/mbr"
	"github.com/arourr/diskfat/memdisk"
)

func main() {
	app := cli.App{
		Usage: "Inspect and build MBR/FAT12/FAT16 disk images",
		Commands: []*cli.Command{
			inspectCommand(),
			partitionCommand(),
			formatCommand(),
			geometriesCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func openImage(path string, writable bool) (*memdisk.FileDisk, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", path, err)
	}

	perms := disko.ReadOnly
	if writable {
		perms = disko.ReadWrite
	}
	return memdisk.OpenFileDisk(path, info.Size(), disko.AnySectorSize(), perms)
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the MBR partition table of an image",
		ArgsUsage: "IMAGE_FILE",
		Action: func(context *cli.Context) error {
			path := context.Args().First()
			if path == "" {
				return fmt.Errorf("IMAGE_FILE is required")
			}

			disk, err := openImage(path, false)
			if err != nil {
				return err
			}
			defer disk.Close()

			table, ok, driverErr := mbr.ReadFromDisk(disk, 0)
			if driverErr != nil {
				return driverErr
			}
			if !ok {
				fmt.Println("no MBR signature found")
				return nil
			}

			for i := 0; i < 4; i++ {
				info, _ := table.PartitionInfos(i)
				if info.SizeInSectors == 0 {
					continue
				}
				fmt.Printf(
					"partition %d: start=%d sectors=%d type=0x%02X (%s)\n",
					i, info.LbaStart, info.SizeInSectors, info.PartitionType,
					mbr.PartitionTypeName(info.PartitionType),
				)
			}
			return nil
		},
	}
}

func partitionCommand() *cli.Command {
	var index int
	var start, size uint64
	var partType uint

	return &cli.Command{
		Name:      "partition",
		Usage:     "Write a partition table entry into an image's MBR",
		ArgsUsage: "IMAGE_FILE",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "index", Usage: "partition table slot, 0-3", Destination: &index},
			&cli.Uint64Flag{Name: "start", Usage: "starting LBA sector", Destination: &start},
			&cli.Uint64Flag{Name: "size", Usage: "size in sectors", Destination: &size},
			&cli.UintFlag{Name: "type", Usage: "partition type byte", Value: mbr.PartitionTypeFat16, Destination: &partType},
		},
		Action: func(context *cli.Context) error {
			path := context.Args().First()
			if path == "" {
				return fmt.Errorf("IMAGE_FILE is required")
			}

			disk, err := openImage(path, true)
			if err != nil {
				return err
			}
			defer disk.Close()

			table, ok, driverErr := mbr.ReadFromDisk(disk, 0)
			if driverErr != nil {
				return driverErr
			}
			if !ok {
				table, driverErr = mbr.New(disk, 0)
				if driverErr != nil {
					return driverErr
				}
			}

			if driverErr := table.CreatePartition(index, start, size, byte(partType)); driverErr != nil {
				return driverErr
			}
			if driverErr := table.Write(); driverErr != nil {
				return driverErr
			}

			fmt.Printf("wrote partition %d: start=%d size=%d type=0x%02X\n", index, start, size, partType)
			return nil
		},
	}
}

func formatCommand() *cli.Command {
	var variant string
	var rootDirEntries, numberOfFats, hiddenSectors, sectorSize, sectorsPerCluster int

	return &cli.Command{
		Name:      "format",
		Usage:     "Format an image as a fresh FAT12 or FAT16 volume",
		ArgsUsage: "IMAGE_FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "variant", Usage: "fat12 or fat16", Value: "fat16", Destination: &variant},
			&cli.IntFlag{Name: "root-dir-entries", Value: 224, Destination: &rootDirEntries},
			&cli.IntFlag{Name: "fats", Value: 2, Destination: &numberOfFats},
			&cli.IntFlag{Name: "hidden-sectors", Value: 0, Destination: &hiddenSectors},
			&cli.IntFlag{Name: "sector-size", Usage: "0 to auto-select", Value: 0, Destination: &sectorSize},
			&cli.IntFlag{Name: "sectors-per-cluster", Usage: "0 to auto-select", Value: 0, Destination: &sectorsPerCluster},
		},
		Action: func(context *cli.Context) error {
			path := context.Args().First()
			if path == "" {
				return fmt.Errorf("IMAGE_FILE is required")
			}

			disk, err := openImage(path, true)
			if err != nil {
				return err
			}
			defer disk.Close()

			switch variant {
			case "fat12":
				_, driverErr := fat.Fat12New(disk, rootDirEntries, numberOfFats, hiddenSectors, sectorSize, sectorsPerCluster)
				if driverErr != nil {
					return driverErr
				}
			case "fat16":
				_, driverErr := fat.Fat16New(disk, rootDirEntries, numberOfFats, hiddenSectors, sectorSize, sectorsPerCluster)
				if driverErr != nil {
					return driverErr
				}
			default:
				return fmt.Errorf("unknown variant %q, want fat12 or fat16", variant)
			}

			fmt.Printf("formatted %q as %s\n", path, variant)
			return nil
		},
	}
}

func geometriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "geometries",
		Usage: "List canonical floppy/fixed-disk geometries",
		Action: func(context *cli.Context) error {
			for _, g := range disks.ListDiskGeometries() {
				fmt.Printf("%-14s %-22s %d bytes (%s)\n", g.Slug, g.Name, g.TotalSizeBytes(), g.FormFactor)
			}
			return nil
		},
	}
}
