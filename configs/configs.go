/*
Package configs is part of PixelHive, a distributed Ising-model image denoiser.

This file contains structs and functions to manipulate configuration JSONs
*/
package configs

import (
	"encoding/json"
	"io/ioutil"
)

//for each worker host we intend to deploy,
//we need these to connect to it
type DeployConfig struct {
	Address  string
	Port     string
	Username string
	Password string
}

//one entry per rank in the cluster, rank 0 is the master
type WorkerConfig struct {
	Address string
	Rank    int
}

//this is the struct for pixelhive.json.
//Workers lists every rank and its address, the master included.
//BasePort is the first listen port; rank r listens on BasePort+r.
//TotalIterations overrides the default sampling budget when non zero.
//Deploy lists the machines the master starts workers on with -launch.
type Config struct {
	BasePort        int
	TotalIterations int
	Workers         []WorkerConfig
	Deploy          []DeployConfig
}

//reads configuration from the given path
func ReadConfig(path string) (Config, error) {
	c := Config{}
	cfFile, err := ioutil.ReadFile(path)
	if err != nil {
		//fail to read config
		return c, err
	}
	err = json.Unmarshal(cfFile, &c)
	if err != nil {
		//unable to decode the config
		return c, err
	}

	return c, nil
}

//writes a config, typically for the deployed workers
func WriteConfig(path string, c Config) error {
	cfArr, err := json.Marshal(c)
	if err != nil {
		//failed to encode the config
		return err
	}
	err = ioutil.WriteFile(path, cfArr, 0644)
	return err
}
