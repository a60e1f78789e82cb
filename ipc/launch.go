/*
Package ipc is part of PixelHive, a distributed Ising-model image denoiser.

This file contains the deployment helpers that start the worker
processes on remote machines over ssh. The master compiles the binary,
copies it with the cluster config to each host and launches it with the
host's rank.
*/
package ipc

import (
	"bytes"
	"fmt"
	"log"
	"net"
	"os/exec"
	"time"

	"github.com/dashaylan/PixelHive/configs"

	"golang.org/x/crypto/ssh"
)

//runs a native exec, possibly dumping output as required
func runComm(command string, arg []string, debug bool) error {
	com := exec.Command(command, arg...)
	var stderr bytes.Buffer
	com.Stderr = &stderr
	err := com.Run()
	if err != nil && debug {
		log.Println(fmt.Sprint(err) + ": " + stderr.String())
	}
	return err
}

// GetOutboundIP grabs the outbound IP of this machine
func GetOutboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}

func remoteComm(connection *ssh.Client, command string) error {
	session, err := connection.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,     // disable echoing
		ssh.TTY_OP_ISPEED: 14400, // input speed = 14.4kbaud
		ssh.TTY_OP_OSPEED: 14400, // output speed = 14.4kbaud
	}

	if err := session.RequestPty("xterm", 80, 40, modes); err != nil {
		return err
	}

	return session.Run(command)
}

// StartWorkers deploys the denoiser binary to every host in the Deploy
// list and starts it with that host's rank and the program arguments.
// Returns the number of workers successfully started.
func StartWorkers(conf configs.Config, confPath string, args []string) (int, error) {
	err := runComm("go", []string{"build", "-o", "denoiser"}, true)
	if err != nil {
		return 0, err
	}

	//sshpass is necessary to execute scp non-interactively
	err = runComm("chmod", []string{"a+x", "./sshpass"}, true)
	if err != nil {
		fmt.Println("[IPC] StartWorkers: Unable to grant sshpass necessary permissions,", err)
		return 0, err
	}

	resChan := make(chan int, len(conf.Deploy))
	for i, host := range conf.Deploy {
		rank := i + 1
		go func(host configs.DeployConfig, rank int) {
			fmt.Println("[IPC] StartWorkers: Starting deployment for worker", host.Address)
			sshConfig := &ssh.ClientConfig{
				User:            host.Username,
				Auth:            []ssh.AuthMethod{ssh.Password(host.Password)},
				HostKeyCallback: ssh.InsecureIgnoreHostKey(),
				Timeout:         15 * time.Second,
			}

			addrport := host.Address + ":22"
			if host.Port != "" {
				addrport = host.Address + ":" + host.Port
			}
			client, err := ssh.Dial("tcp", addrport, sshConfig)
			if err != nil {
				resChan <- -1
				fmt.Println("[IPC] StartWorkers: Unable to set up SSH connection,", err)
				return
			}
			defer client.Close()

			err = remoteComm(client, "rm -rf /tmp/pixelhive && mkdir /tmp/pixelhive")
			if err != nil {
				fmt.Println("[IPC] StartWorkers: Unable to create temp dir,", err)
				resChan <- -1
				return
			}

			//scp binary and config into remote machine
			target := host.Username + "@" + host.Address
			err = runComm("./sshpass", []string{"-p", host.Password, "scp", "-q", "./denoiser", target + ":/tmp/pixelhive/denoiser"}, true)
			if err != nil {
				fmt.Println("[IPC] StartWorkers: Unable to copy exec for worker", host.Address, ",", err)
				resChan <- -1
				return
			}
			err = runComm("./sshpass", []string{"-p", host.Password, "scp", "-q", confPath, target + ":/tmp/pixelhive/pixelhive.json"}, true)
			if err != nil {
				fmt.Println("[IPC] StartWorkers: Unable to copy conf,", err)
				resChan <- -1
				return
			}

			err = remoteComm(client, "chmod a+x /tmp/pixelhive/denoiser")
			if err != nil {
				fmt.Println("[IPC] StartWorkers: Unable to set permissions,", err)
				resChan <- -1
				return
			}

			cmd := fmt.Sprintf("cd /tmp/pixelhive && nohup ./denoiser -rank %d -config pixelhive.json", rank)
			for _, a := range args {
				cmd += " " + a
			}
			cmd += " >denoiser.log 2>&1 &"
			err = remoteComm(client, cmd)
			if err != nil {
				fmt.Println("[IPC] StartWorkers: Unable to run executable,", err)
				resChan <- -1
				return
			}
			fmt.Println("[IPC] StartWorkers: Remote worker", rank, "running")
			resChan <- rank
		}(host, rank)
	}

	started := 0
	for range conf.Deploy {
		select {
		case rank := <-resChan:
			if rank > 0 {
				started++
			}
		case <-time.After(60 * time.Second):
			fmt.Println("[IPC] StartWorkers: Got", started, "workers, rest timed out")
			return started, nil
		}
	}
	return started, nil
}
